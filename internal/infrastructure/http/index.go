package http

import "github.com/gofiber/fiber/v2"

// handleIndex serves a minimal chat page for the active conversation.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(indexHTML)
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AO Assistant</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 860px; margin: 0 auto; padding: 1rem; }
        .message { padding: .6rem .8rem; margin: .4rem 0; border-radius: 6px; white-space: pre-wrap; }
        .user { background: #e8f7f0; }
        .assistant { background: #f1ecff; }
        .error { color: #c0392b; }
        .muted { color: #777; font-size: .85rem; }
        form { display: flex; gap: .5rem; margin-top: 1rem; }
        input[type=text] { flex: 1; padding: .5rem; }
    </style>
</head>
<body>
    <header>
        <h1>AO Assistant</h1>
        <p class="muted" id="conversation">No conversation selected</p>
    </header>

    <main>
        <div id="messages"></div>
        <form id="query-form" onsubmit="sendMessage(event)">
            <input type="text" id="query-input" placeholder="Ask about your documents..." autocomplete="off" required>
            <button type="submit" id="send-btn">Send</button>
        </form>
        <p class="muted" id="progress"></p>
    </main>

    <script>
        let state = null;

        function activeConversation() {
            if (!state || !state.activeConversationId) return null;
            return state.conversations.find(c => c.id === state.activeConversationId) || null;
        }

        function render() {
            const conv = activeConversation();
            const messages = document.getElementById('messages');
            document.getElementById('conversation').textContent = conv ? conv.title : 'No conversation selected';
            messages.innerHTML = '';
            const list = conv ? conv.messages.slice() : [];
            if (state && state.streamingMessage) list.push(state.streamingMessage);
            for (const m of list) {
                const div = document.createElement('div');
                div.className = 'message ' + m.role;
                const cites = m.citations || [];
                div.textContent = m.content.replace(/【(\d+):0†source】/g,
                    (marker, n) => (n >= 1 && n <= cites.length) ? '(' + n + ')' : marker);
                messages.appendChild(div);
            }
            const p = state && state.uploadProgress;
            document.getElementById('progress').textContent = p
                ? p.steps.map(s => s.label + ': ' + s.status).join(' · ') + (p.error ? ' (' + p.error + ')' : '')
                : '';
        }

        function connect() {
            const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
            const ws = new WebSocket(proto + location.host + '/ws');
            ws.onmessage = e => { state = JSON.parse(e.data); render(); };
            ws.onclose = () => setTimeout(connect, 2000);
        }

        async function sendMessage(e) {
            e.preventDefault();
            const input = document.getElementById('query-input');
            const conv = activeConversation();
            const text = input.value.trim();
            if (!conv || !text) return;
            input.value = '';

            const resp = await fetch('/api/conversations/' + conv.id + '/messages', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ content: text })
            });
            if (!resp.ok) {
                const err = await resp.json();
                document.getElementById('progress').innerHTML = '<span class="error"></span>';
                document.querySelector('#progress .error').textContent = err.message;
                return;
            }
            // The websocket renders the stream; drain the body so the request completes.
            const reader = resp.body.getReader();
            while (!(await reader.read()).done) {}
        }

        connect();
    </script>
</body>
</html>`
