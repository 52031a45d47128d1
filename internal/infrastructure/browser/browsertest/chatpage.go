// Package browsertest serves a minimal chat surface for driver tests.
package browsertest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Selectors matching ChatPageHTML.
const (
	SelectorInput         = "#prompt"
	SelectorSend          = "#send"
	SelectorStop          = "#stop"
	SelectorResponse      = ".markdown"
	SelectorMenuButton    = "#menu"
	SelectorMenuExpanded  = "#history"
	SelectorTempButton    = "#temp-chat"
	SelectorTempIndicator = "#temp-indicator"
	SelectorNeverVisible  = "#never"
)

// ChatPageHTML answers every prompt with "echo: <prompt>" after GenerationMillis.
const ChatPageHTML = `<!DOCTYPE html>
<html>
<head><title>Chat</title></head>
<body>
	<button id="menu">menu</button>
	<div id="history" style="display:none">history</div>
	<button id="temp-chat">temporary chat</button>
	<div id="temp-indicator" style="display:none">temporary</div>
	<div id="prompt" contenteditable="true" role="textbox" style="min-height:20px;border:1px solid #000"></div>
	<button id="send" aria-label="Send message">send</button>
	<button id="stop" aria-label="Stop response" style="display:none">stop</button>
	<div id="never" style="display:none">never</div>
	<div id="responses"></div>
	<script>
		const byId = (id) => document.getElementById(id);
		byId('menu').addEventListener('click', () => { byId('history').style.display = 'block'; });
		byId('temp-chat').addEventListener('click', () => { byId('temp-indicator').style.display = 'block'; });
		function submit() {
			const text = byId('prompt').innerText.trim();
			if (!text) return;
			byId('prompt').innerText = '';
			byId('stop').style.display = 'block';
			setTimeout(() => {
				const block = document.createElement('div');
				block.className = 'markdown';
				block.innerHTML = '<p>echo: <b>' + text + '</b></p><script>ignored()<\/script>';
				byId('responses').appendChild(block);
				byId('stop').style.display = 'none';
			}, %d);
		}
		byId('send').addEventListener('click', submit);
		byId('prompt').addEventListener('keydown', (e) => {
			if (e.key === 'Enter') { e.preventDefault(); submit(); }
		});
	</script>
</body>
</html>`

const GenerationMillis = 400

// NewChatServer serves ChatPageHTML on every path and closes with the test.
func NewChatServer(t testing.TB) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, ChatPageHTML, GenerationMillis)
	}))
	t.Cleanup(server.Close)
	return server
}
