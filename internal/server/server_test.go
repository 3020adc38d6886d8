package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	throttleservice "github.com/EdouardYu/ZeroDay/internal/loginattempt/service"
	tokenservice "github.com/EdouardYu/ZeroDay/internal/token/service"
	userdomain "github.com/EdouardYu/ZeroDay/internal/user/domain"
	userservice "github.com/EdouardYu/ZeroDay/internal/user/service"
	validation "github.com/EdouardYu/ZeroDay/internal/validation/service"
)

type fakeFlows struct {
	signInToken string
	err         error
	signedOut   []int64
}

func (f *fakeFlows) SignUp(ctx context.Context, email, username, password string) error { return f.err }
func (f *fakeFlows) Activate(ctx context.Context, email, code string) error             { return f.err }
func (f *fakeFlows) NewActivationCode(ctx context.Context, email string) error          { return f.err }
func (f *fakeFlows) ResetPassword(ctx context.Context, email string) error              { return f.err }
func (f *fakeFlows) NewPassword(ctx context.Context, email, code, password string) error {
	return f.err
}

func (f *fakeFlows) SignIn(ctx context.Context, email, password, deviceID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.signInToken, nil
}

func (f *fakeFlows) SignOut(ctx context.Context, userID int64) error {
	f.signedOut = append(f.signedOut, userID)
	return f.err
}

type fakeDevices struct{}

func (fakeDevices) EnsureDeviceID(w http.ResponseWriter, r *http.Request) (string, error) {
	return "device-1", nil
}

type fakeValidator struct {
	id  *tokenservice.Identity
	err error
}

func (f *fakeValidator) Validate(ctx context.Context, raw string) (*tokenservice.Identity, error) {
	return f.id, f.err
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	h.ServeHTTP(w, r)
	return w
}

func TestSignInRoute(t *testing.T) {
	flows := &fakeFlows{signInToken: "tok"}
	router := New(flows, fakeDevices{}, &fakeValidator{}).Router()

	w := post(router, "/signin", `{"email":"a@b.c","password":"pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != "tok" {
		t.Errorf("token = %q, want tok", resp.Token)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
	}{
		{"throttled", "/signin", `{"email":"a@b.c","password":"pw"}`,
			fmt.Errorf("%w: try again in 10m", throttleservice.ErrTooManyAttempts), http.StatusTooManyRequests},
		{"bad credentials", "/signin", `{"email":"a@b.c","password":"pw"}`,
			fmt.Errorf("%w: 3 attempts remaining", userservice.ErrBadCredentials), http.StatusUnauthorized},
		{"email taken", "/signup", `{"email":"a@b.c","username":"a","password":"pw"}`,
			userservice.ErrEmailTaken, http.StatusBadRequest},
		{"expired code", "/activate", `{"email":"a@b.c","code":"123456"}`,
			validation.ErrExpiredCode, http.StatusBadRequest},
		{"disabled code", "/password/new", `{"email":"a@b.c","code":"123456","password":"pw"}`,
			validation.ErrDisabledCode, http.StatusBadRequest},
		{"unknown email", "/password/reset", `{"email":"a@b.c"}`,
			userservice.ErrUnknownEmail, http.StatusBadRequest},
		{"infrastructure", "/signup", `{"email":"a@b.c","username":"a","password":"pw"}`,
			fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := New(&fakeFlows{err: tc.err}, fakeDevices{}, &fakeValidator{}).Router()
			w := post(router, tc.path, tc.body)
			if w.Code != tc.status {
				t.Errorf("status = %d, want %d", w.Code, tc.status)
			}
			if tc.status == http.StatusInternalServerError &&
				strings.Contains(w.Body.String(), "connection refused") {
				t.Error("internal error detail leaked to the client")
			}
		})
	}
}

func TestSignOutRoute(t *testing.T) {
	flows := &fakeFlows{}
	v := &fakeValidator{id: &tokenservice.Identity{UserID: 42, Role: userdomain.RoleUser}}
	router := New(flows, fakeDevices{}, v).Router()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/signout", nil)
	r.Header.Set("Authorization", "Bearer tok")
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if len(flows.signedOut) != 1 || flows.signedOut[0] != 42 {
		t.Errorf("signedOut = %v, want [42]", flows.signedOut)
	}
}

func TestSignOutRoute_Unauthenticated(t *testing.T) {
	router := New(&fakeFlows{}, fakeDevices{}, &fakeValidator{err: tokenservice.ErrUnknownToken}).Router()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/signout", nil)
	r.Header.Set("Authorization", "Bearer tok")
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestInvalidBody(t *testing.T) {
	router := New(&fakeFlows{}, fakeDevices{}, &fakeValidator{}).Router()
	w := post(router, "/signup", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := New(&fakeFlows{}, fakeDevices{}, &fakeValidator{}).Router()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
