package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Fatal job errors. Only these cross the pipeline boundary; everything else
// degrades into empty records or the fail-closed decision.
var (
	// ErrMissingUserID means the inbound message carried no user identifier.
	ErrMissingUserID = errors.New("job message has no user identifier")

	// ErrNoArtifacts means the user's folder contained nothing to evaluate.
	ErrNoArtifacts = errors.New("no artifacts found for user")
)

// JobMessage is the inbound trigger for one claim evaluation run.
// The delivery substrate (queue, retries, dead-lettering) is external; the
// pipeline only sees the decoded message body.
type JobMessage struct {
	UserID string `json:"userId"`
}

// ParseJobMessage decodes a raw message body. Both "userId" and "user_id"
// key spellings are accepted; a missing identifier is ErrMissingUserID.
func ParseJobMessage(body []byte) (JobMessage, error) {
	var raw struct {
		UserID    string `json:"userId"`
		UserIDAlt string `json:"user_id"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return JobMessage{}, fmt.Errorf("decode job message: %w", err)
	}

	userID := strings.TrimSpace(raw.UserID)
	if userID == "" {
		userID = strings.TrimSpace(raw.UserIDAlt)
	}
	if userID == "" {
		return JobMessage{}, ErrMissingUserID
	}

	return JobMessage{UserID: userID}, nil
}
