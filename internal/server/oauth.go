package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/playsync/playsync/internal/services"
)

// OAuthResult contains the result of a CLI OAuth authorization flow.
type OAuthResult struct {
	Credential string // Serialized token, ready to persist on an account
	err        error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the OAuth2 callback for the CLI login flow.
// Implements the Handler interface for registration with a Router.
//
// The CLI starts a temporary localhost server, opens the authorization URL
// in the browser, and blocks on [OAuthHandler.Result]; the handler accepts
// exactly one callback.
type OAuthHandler struct {
	spotify     *services.SpotifyService
	state       string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a new OAuth handler bound to the given service and
// state token. The state token should be cryptographically random.
func NewOAuthHandler(spotify *services.SpotifyService, state string) *OAuthHandler {
	return &OAuthHandler{
		spotify:    spotify,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/api/spotify/callback"}
}

// ServeHTTP handles the OAuth callback request.
//
// Rejects replayed callbacks, treats a provider error or state mismatch as
// terminal, and otherwise exchanges the code and delivers the credential
// through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		err := fmt.Errorf("authorization denied: %s", errParam)
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization denied", http.StatusBadRequest)
		return
	}

	if query.Get("state") != h.state {
		err := fmt.Errorf("state mismatch in callback")
		h.Send(OAuthResult{err: err})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("callback carried no authorization code")
		h.Send(OAuthResult{err: err})
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	credential, err := h.spotify.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: err})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.Send(OAuthResult{Credential: credential})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
