// Package nav drives screen transitions. A State is a value: every
// transition returns a fresh State and never mutates the one it was given.
package nav

import (
	"errors"
	"fmt"

	"roadrich/internal/core"
)

type Screen string

const (
	ScreenWelcome      Screen = "welcome"
	ScreenAuth         Screen = "auth"
	ScreenOnboarding   Screen = "onboarding"
	ScreenDashboard    Screen = "dashboard"
	ScreenAnalysis     Screen = "analysis"
	ScreenAddExpense   Screen = "add-expense"
	ScreenExpensesList Screen = "expenses-list"
	ScreenCategories   Screen = "categories"
)

type AuthMode string

const (
	AuthSignIn AuthMode = "signin"
	AuthSignUp AuthMode = "signup"
)

var ErrInvalidTransition = errors.New("invalid transition")

// State is everything a screen needs to render. User and Profile are
// shared read-only snapshots; transitions replace them, they never edit them.
type State struct {
	Screen     Screen
	User       *core.User
	Profile    *core.Profile
	AuthMode   AuthMode
	CategoryID string            // expenses-list filter
	EntryMode  core.CategoryType // add-expense default category type
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool {
	return s.User != nil
}

// NeedsAuth reports whether the screen requires a signed-in user.
func (sc Screen) NeedsAuth() bool {
	return sc != ScreenWelcome && sc != ScreenAuth
}

func (sc Screen) Valid() bool {
	switch sc {
	case ScreenWelcome, ScreenAuth, ScreenOnboarding, ScreenDashboard,
		ScreenAnalysis, ScreenAddExpense, ScreenExpensesList, ScreenCategories:
		return true
	}
	return false
}

// Event is a user or system action that may move the app to another screen.
type Event interface {
	Name() string
}

type (
	// Start resolves the first screen from an existing session.
	Start struct {
		User    *core.User
		Profile *core.Profile
	}
	SignInRequested struct{}
	SignUpRequested struct{}
	Back            struct{}
	AuthSucceeded   struct {
		User     *core.User
		Profile  *core.Profile
		IsSignUp bool
	}
	OnboardingCompleted struct {
		Profile *core.Profile
	}
	OpenAddExpense struct {
		Mode core.CategoryType
	}
	OpenAnalysis     struct{}
	OpenExpensesList struct {
		CategoryID string
	}
	OpenCategories  struct{}
	Logout          struct{}
	ExpenseSaved    struct{}
	SignedOut       struct{}
	CategoryChanged struct{}
)

func (Start) Name() string               { return "start" }
func (SignInRequested) Name() string     { return "sign_in_requested" }
func (SignUpRequested) Name() string     { return "sign_up_requested" }
func (Back) Name() string                { return "back" }
func (AuthSucceeded) Name() string       { return "auth_succeeded" }
func (OnboardingCompleted) Name() string { return "onboarding_completed" }
func (OpenAddExpense) Name() string      { return "open_add_expense" }
func (OpenAnalysis) Name() string        { return "open_analysis" }
func (OpenExpensesList) Name() string    { return "open_expenses_list" }
func (OpenCategories) Name() string      { return "open_categories" }
func (Logout) Name() string              { return "logout" }
func (ExpenseSaved) Name() string        { return "expense_saved" }
func (SignedOut) Name() string           { return "signed_out" }
func (CategoryChanged) Name() string     { return "category_changed" }

// Initial is the state before Start has been handled.
func Initial() State {
	return State{Screen: ScreenWelcome}
}

// Transition applies ev to s. s is first normalised: a screen that needs a
// user falls back to welcome and a bare auth screen defaults to sign-in.
// On an invalid event it returns that normalised state together with
// ErrInvalidTransition.
func Transition(s State, ev Event) (State, error) {
	s = guard(s)

	// Events accepted on every screen.
	switch e := ev.(type) {
	case Start:
		return start(e.User, e.Profile), nil
	case SignedOut:
		return welcome(), nil
	case CategoryChanged:
		if !s.Authenticated() || s.Screen == ScreenOnboarding {
			return s, invalid(s, ev)
		}
		return s.to(ScreenDashboard), nil
	}

	switch s.Screen {
	case ScreenWelcome:
		switch ev.(type) {
		case SignInRequested:
			return State{Screen: ScreenAuth, AuthMode: AuthSignIn}, nil
		case SignUpRequested:
			return State{Screen: ScreenAuth, AuthMode: AuthSignUp}, nil
		}

	case ScreenAuth:
		switch e := ev.(type) {
		case Back:
			return welcome(), nil
		case AuthSucceeded:
			if e.User == nil {
				return s, fmt.Errorf("%w: %s without user", ErrInvalidTransition, ev.Name())
			}
			next := State{User: e.User, Profile: e.Profile}
			if e.IsSignUp || e.Profile == nil {
				next.Profile = nil
				next.Screen = ScreenOnboarding
				return next, nil
			}
			next.Screen = ScreenDashboard
			return next, nil
		}

	case ScreenOnboarding:
		if e, ok := ev.(OnboardingCompleted); ok {
			if e.Profile == nil {
				return s, fmt.Errorf("%w: %s without profile", ErrInvalidTransition, ev.Name())
			}
			return State{Screen: ScreenDashboard, User: s.User, Profile: e.Profile}, nil
		}

	case ScreenDashboard:
		switch e := ev.(type) {
		case OpenAddExpense:
			next := s.to(ScreenAddExpense)
			next.EntryMode = e.Mode
			if !next.EntryMode.Valid() {
				next.EntryMode = core.CategoryExpense
			}
			return next, nil
		case OpenAnalysis:
			return s.to(ScreenAnalysis), nil
		case OpenExpensesList:
			next := s.to(ScreenExpensesList)
			next.CategoryID = e.CategoryID
			return next, nil
		case OpenCategories:
			return s.to(ScreenCategories), nil
		case Logout:
			return welcome(), nil
		}

	case ScreenAnalysis, ScreenExpensesList, ScreenCategories:
		if _, ok := ev.(Back); ok {
			return s.to(ScreenDashboard), nil
		}

	case ScreenAddExpense:
		switch ev.(type) {
		case Back, ExpenseSaved:
			return s.to(ScreenDashboard), nil
		}
	}

	return s, invalid(s, ev)
}

func invalid(s State, ev Event) error {
	return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev.Name(), s.Screen)
}

func start(user *core.User, profile *core.Profile) State {
	switch {
	case user == nil:
		return welcome()
	case profile == nil:
		return State{Screen: ScreenOnboarding, User: user}
	default:
		return State{Screen: ScreenDashboard, User: user, Profile: profile}
	}
}

func welcome() State {
	return State{Screen: ScreenWelcome}
}

// to keeps the session and drops per-screen parameters.
func (s State) to(screen Screen) State {
	return State{Screen: screen, User: s.User, Profile: s.Profile}
}

// guard sends states that lost their user back to the welcome screen.
func guard(s State) State {
	if !s.Screen.Valid() {
		return welcome()
	}
	if s.Screen.NeedsAuth() && !s.Authenticated() {
		return welcome()
	}
	if s.Screen == ScreenAuth && s.AuthMode == "" {
		s.AuthMode = AuthSignIn
	}
	return s
}
