package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvizioon/oxypass/internal/domain"
)

type MoodleSearchField string

const (
	MoodleSearchByEmail    MoodleSearchField = "email"
	MoodleSearchByUsername MoodleSearchField = "username"
)

var (
	// ErrMoodleUserNotFound means the remote answered, but no user matches
	// the identifier. Callers must be able to tell this apart from a
	// communication failure.
	ErrMoodleUserNotFound = errors.New("moodle user not found")

	// ErrMoodleUpdateRejected means the remote processed the update call but
	// refused the change (a warning with an error/invalid code).
	ErrMoodleUpdateRejected = errors.New("moodle update rejected")
)

// MoodleRemoteError carries an errorcode payload returned by the Moodle API
// itself, as opposed to a transport failure.
type MoodleRemoteError struct {
	Code    string
	Message string
}

func (e *MoodleRemoteError) Error() string {
	return fmt.Sprintf("moodle error %s: %s", e.Code, e.Message)
}

// MoodleClient performs identity lookups and updates against one Moodle
// instance. Both calls block until the remote responds or the client's
// timeout elapses; a timeout is reported as an ordinary error.
type MoodleClient interface {
	FindUser(ctx context.Context, ws *domain.WebService, field MoodleSearchField, value string) (*domain.MoodleUser, error)
	UpdateUser(ctx context.Context, ws *domain.WebService, userID int64, fields map[string]string) (*domain.MoodleUpdateResult, error)
}
