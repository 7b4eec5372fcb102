package consultation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MeetingLinkResolver produces the opaque room URI stored on a consultation
// at booking time. The service never parses the result; the video transport
// behind it is somebody else's problem.
type MeetingLinkResolver interface {
	Resolve(ctx context.Context, consultationID uuid.UUID) (string, error)
}

type roomLinkResolver struct {
	baseURL string
}

// NewRoomLinkResolver mints per-consultation room links under a fixed base URL.
func NewRoomLinkResolver(baseURL string) MeetingLinkResolver {
	return &roomLinkResolver{baseURL: strings.TrimRight(baseURL, "/")}
}

func (r *roomLinkResolver) Resolve(_ context.Context, consultationID uuid.UUID) (string, error) {
	if r.baseURL == "" {
		return "", fmt.Errorf("meeting base URL not configured")
	}
	return fmt.Sprintf("%s/room/%s", r.baseURL, consultationID.String()), nil
}
