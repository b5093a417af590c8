package nav

import (
	"fmt"
	"strings"

	"roadrich/internal/core"
)

// Request is the wire form of a client-triggered event.
type Request struct {
	Event      string `json:"event"`
	CategoryID string `json:"category_id,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

// ParseEvent maps a client request onto an Event. Events that carry a user
// or profile are produced by the server after authentication and cannot be
// requested directly.
func ParseEvent(r Request) (Event, error) {
	switch strings.TrimSpace(strings.ToLower(r.Event)) {
	case "sign_in_requested":
		return SignInRequested{}, nil
	case "sign_up_requested":
		return SignUpRequested{}, nil
	case "back":
		return Back{}, nil
	case "open_add_expense":
		return OpenAddExpense{Mode: core.CategoryType(r.Mode)}, nil
	case "open_analysis":
		return OpenAnalysis{}, nil
	case "open_expenses_list":
		return OpenExpensesList{CategoryID: strings.TrimSpace(r.CategoryID)}, nil
	case "open_categories":
		return OpenCategories{}, nil
	case "expense_saved":
		return ExpenseSaved{}, nil
	case "category_changed":
		return CategoryChanged{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing event", ErrInvalidTransition)
	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, r.Event)
	}
}
