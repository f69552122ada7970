package session

import (
	"fmt"

	"movie-discovery/internal/models"
)

// Phase is the lifecycle phase of the recommendation request.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// State is a point-in-time copy of a session. Mutating it has no effect on
// the session.
type State struct {
	ID                       string                       `json:"session_id"`
	SelectedMovie            *int                         `json:"selected_movie"`
	Phase                    Phase                        `json:"phase"`
	ErrorMessage             *string                      `json:"error_message"`
	Result                   *models.RecommendationResult `json:"result"`
	CooldownSecondsRemaining int                          `json:"cooldown_seconds_remaining"`
	CatalogError             string                       `json:"catalog_error,omitempty"`
	Submit                   SubmitControl                `json:"submit"`
}

// SubmitControl describes how the submit button should be drawn.
type SubmitControl struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

func submitControl(phase Phase, cooldown int, hasSelection bool) SubmitControl {
	switch {
	case phase == PhaseLoading:
		return SubmitControl{Label: "Searching...", Disabled: true}
	case cooldown > 0:
		return SubmitControl{Label: fmt.Sprintf("Wait %d seconds...", cooldown), Disabled: true}
	default:
		return SubmitControl{Label: "Get Recommendations", Disabled: !hasSelection}
	}
}
