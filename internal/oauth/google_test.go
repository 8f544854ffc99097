package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeProvider spins up an httptest server that plays both the token
// endpoint and the userinfo endpoint, and returns a Provider pointed
// at it.
func fakeProvider(t *testing.T, userinfo string, userinfoStatus int) *Provider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fake-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userinfoStatus)
		w.Write([]byte(userinfo))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGoogleProvider("client-id", "client-secret", "http://localhost/auth/google/callback")
	p.Config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/auth",
		TokenURL: srv.URL + "/token",
	}
	p.UserinfoURL = srv.URL + "/userinfo"
	return p
}

func TestAuthURL_CarriesState(t *testing.T) {
	p := NewGoogleProvider("client-id", "client-secret", "http://localhost/auth/google/callback")

	u := p.AuthURL("state-123")

	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "scope=openid+profile+email")
}

func TestFetchProfile_Success(t *testing.T) {
	p := fakeProvider(t, `{"id":"g-42","email":"a@x.com","name":"Alice"}`, http.StatusOK)

	profile, err := p.FetchProfile(context.Background(), "auth-code")

	require.NoError(t, err)
	assert.Equal(t, Profile{ProviderID: "g-42", Email: "a@x.com", Name: "Alice"}, profile)
}

func TestFetchProfile_MissingIdentity(t *testing.T) {
	p := fakeProvider(t, `{"name":"Alice"}`, http.StatusOK)

	_, err := p.FetchProfile(context.Background(), "auth-code")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id or email")
}

func TestFetchProfile_UserinfoFailure(t *testing.T) {
	p := fakeProvider(t, `{"error":"internal"}`, http.StatusInternalServerError)

	_, err := p.FetchProfile(context.Background(), "auth-code")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}
