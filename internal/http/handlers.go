package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"roadrich/internal/core"
	applog "roadrich/internal/log"
	"roadrich/internal/nav"
)

type ctxKey int

const userKey ctxKey = iota

// currentSession returns the session ID from the cookie and its state. An
// unknown or expired ID yields the initial state and ok=false.
func (s *Server) currentSession(r *http.Request) (string, nav.State, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return "", nav.Initial(), false
	}
	st, ok := s.sessions.Get(c.Value)
	return c.Value, st, ok
}

// ensureSession returns a live session ID, creating the session and its
// cookie when the request has none.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (string, nav.State) {
	id, st, ok := s.currentSession(r)
	if ok {
		return id, st
	}
	id = s.sessions.Create(nav.Initial())
	s.setSessionCookie(w, id)
	return id, nav.Initial()
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireUser rejects requests without a signed-in session and puts the
// user into the request context.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, st, ok := s.currentSession(r)
		if !ok || !st.Authenticated() {
			UnauthorizedError().Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, *st.User)
		ctx = applog.WithUser(ctx, st.User.ID)
		next(w, r.WithContext(ctx))
	}
}

// userFrom returns the user placed by requireUser.
func userFrom(ctx context.Context) core.User {
	u, _ := ctx.Value(userKey).(core.User)
	return u
}

// dispatch applies ev to the caller's session, ignoring rejected events.
func (s *Server) dispatch(r *http.Request, ev nav.Event) {
	id, _, ok := s.currentSession(r)
	if !ok {
		return
	}
	if _, err := s.sessions.Dispatch(r.Context(), id, ev); err != nil && !errors.Is(err, nav.ErrInvalidTransition) {
		slog.WarnContext(r.Context(), "Navigation failed", "event", ev.Name(), "error", err)
	}
}

// GET /api/session resolves the starting screen for the caller's session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, st := s.ensureSession(w, r)

	// A bare session has not been started yet.
	if st.Screen == nav.ScreenWelcome && !st.Authenticated() {
		next, err := s.sessions.Dispatch(r.Context(), id, nav.Start{})
		if err == nil {
			st = next
		}
	}
	NewJSONResponse().Body(newStateView(st)).Write(w)
}

// POST /api/nav applies a client event to the session.
func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	var req nav.Request
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	ev, err := nav.ParseEvent(req)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	id, _ := s.ensureSession(w, r)
	st, err := s.sessions.Dispatch(r.Context(), id, ev)
	if errors.Is(err, nav.ErrInvalidTransition) {
		NewJSONResponse().Status(http.StatusConflict).Body(map[string]any{
			"error": err.Error(),
			"state": newStateView(st),
		}).Write(w)
		return
	}
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Body(newStateView(st)).Write(w)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	u, err := s.svc.Auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, "Sign up failed", err)
		return
	}
	st := s.authenticate(w, r, &u, nil, true)
	NewJSONResponse().Status(http.StatusCreated).Body(newStateView(st)).Write(w)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	u, p, err := s.svc.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, "Sign in failed", err)
		return
	}
	st := s.authenticate(w, r, &u, p, false)
	NewJSONResponse().Body(newStateView(st)).Write(w)
}

// authenticate moves the session through the auth screen into the app.
// A session that is not on the auth screen is moved there first, so the
// API can be used without driving the welcome screen.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, u *core.User, p *core.Profile, signUp bool) nav.State {
	id, st := s.ensureSession(w, r)
	if st.Screen != nav.ScreenAuth {
		mode := nav.AuthSignIn
		if signUp {
			mode = nav.AuthSignUp
		}
		s.sessions.Put(id, nav.State{Screen: nav.ScreenAuth, AuthMode: mode})
	}
	next, err := s.sessions.Dispatch(r.Context(), id, nav.AuthSucceeded{User: u, Profile: p, IsSignUp: signUp})
	if err != nil {
		slog.ErrorContext(r.Context(), "Session transition after auth failed", "error", err)
	}
	return next
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if id, _, ok := s.currentSession(r); ok {
		if _, err := s.sessions.Dispatch(r.Context(), id, nav.SignedOut{}); err != nil {
			slog.WarnContext(r.Context(), "Sign out transition failed", "error", err)
		}
		s.sessions.Delete(id)
	}
	s.clearSessionCookie(w)
	NewJSONResponse().Body(newStateView(nav.Initial())).Write(w)
}

// POST /api/onboarding saves the profile and leaves onboarding. Outside
// onboarding it updates the profile in place.
func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	income, err := ParseOptionalMoney(req.MonthlyIncome)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	p := core.Profile{UserID: userFrom(r.Context()).ID, FirstName: sanitizeInput(req.FirstName)}
	if income != nil {
		p.MonthlyIncome = *income
	}

	saved, err := s.svc.Auth.SaveProfile(r.Context(), p)
	if err != nil {
		s.writeError(w, r, "Onboarding failed", err)
		return
	}

	id, _, _ := s.currentSession(r)
	st, err := s.sessions.Dispatch(r.Context(), id, nav.OnboardingCompleted{Profile: saved})
	if errors.Is(err, nav.ErrInvalidTransition) {
		st.Profile = saved
		s.sessions.Put(id, st)
	}
	NewJSONResponse().Body(newStateView(st)).Write(w)
}

// writeError logs server-side failures and writes the mapped response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	fields := applog.NewFields().
		WithUser(userFrom(ctx).ID).
		WithOperation(operation(r))

	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.NewStructuredLogger(logger).LogError(ctx, msg, err, applog.ComponentHTTP, operation(r), fields)
		applog.CaptureError(ctx, err, map[string]string{"path": r.URL.Path, "operation": operation(r)})
	} else {
		fields[applog.FieldStatusCode] = resp.statusCode
		logger.Fields(ctx, slog.LevelInfo, msg, fields.WithError(err))
	}
	resp.Write(w)
}

// operation names the kind of write or read a request performs.
func operation(r *http.Request) string {
	switch r.Method {
	case http.MethodPost:
		return applog.OpCreate
	case http.MethodPut:
		return applog.OpUpdate
	case http.MethodDelete:
		return applog.OpDelete
	default:
		return applog.OpList
	}
}
