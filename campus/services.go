package campus

import (
	"context"
	"net/url"

	"github.com/campushub/concierge/chains"
)

var (
	_ chains.MentorDirectory = (*MentorService)(nil)
	_ chains.Notifier        = (*NotifyService)(nil)
	_ chains.Submissions     = (*SubmissionService)(nil)
	_ chains.Inventory       = (*InventoryService)(nil)
	_ chains.Approvals       = (*ApprovalService)(nil)
)

// MentorService talks to the mentor directory service.
type MentorService struct {
	rest
}

// NewMentorService creates a client for the mentor directory at baseURL.
func NewMentorService(baseURL string, opts ...Option) *MentorService {
	return &MentorService{rest: newREST(baseURL, opts)}
}

// Search returns mentors matching an expertise area.
func (s *MentorService) Search(ctx context.Context, expertise string) ([]chains.Mentor, error) {
	var out []chains.Mentor
	err := s.get(ctx, "/mentors", url.Values{"expertise": {expertise}}, &out)
	return out, err
}

// Slots returns the open time slots for a mentor.
func (s *MentorService) Slots(ctx context.Context, mentorID string) ([]string, error) {
	var out []string
	err := s.get(ctx, "/mentors/"+url.PathEscape(mentorID)+"/slots", nil, &out)
	return out, err
}

// Book reserves a slot with a mentor for the owner.
func (s *MentorService) Book(ctx context.Context, mentorID, slot, ownerID string) (*chains.Booking, error) {
	in := map[string]string{"mentor_id": mentorID, "slot": slot, "owner_id": ownerID}
	var out chains.Booking
	if err := s.post(ctx, "/bookings", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NotifyService talks to the campus notification service.
type NotifyService struct {
	rest
}

// NewNotifyService creates a client for the notification service.
func NewNotifyService(baseURL string, opts ...Option) *NotifyService {
	return &NotifyService{rest: newREST(baseURL, opts)}
}

// Send delivers a notification to the owner. Fire and forget from the
// caller's perspective; errors are for logging only.
func (s *NotifyService) Send(ctx context.Context, ownerID, message string) error {
	in := map[string]string{"owner_id": ownerID, "message": message}
	return s.post(ctx, "/notifications", in, nil)
}

// SubmissionService talks to the submission tracking service.
type SubmissionService struct {
	rest
}

// NewSubmissionService creates a client for the submissions service.
func NewSubmissionService(baseURL string, opts ...Option) *SubmissionService {
	return &SubmissionService{rest: newREST(baseURL, opts)}
}

// List returns the owner's open submissions.
func (s *SubmissionService) List(ctx context.Context, ownerID string) ([]chains.Submission, error) {
	var out []chains.Submission
	err := s.get(ctx, "/submissions", url.Values{"owner_id": {ownerID}}, &out)
	return out, err
}

// Get returns one submission with its full status detail.
func (s *SubmissionService) Get(ctx context.Context, submissionID string) (*chains.Submission, error) {
	var out chains.Submission
	if err := s.get(ctx, "/submissions/"+url.PathEscape(submissionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InventoryService talks to the campus inventory service.
type InventoryService struct {
	rest
}

// NewInventoryService creates a client for the inventory service.
func NewInventoryService(baseURL string, opts ...Option) *InventoryService {
	return &InventoryService{rest: newREST(baseURL, opts)}
}

// Search returns resources in a category matching the query.
func (s *InventoryService) Search(ctx context.Context, category, query string) ([]chains.Resource, error) {
	var out []chains.Resource
	err := s.get(ctx, "/resources", url.Values{"category": {category}, "q": {query}}, &out)
	return out, err
}

// Reserve places a hold on a resource for the owner.
func (s *InventoryService) Reserve(ctx context.Context, resourceID, ownerID string) (*chains.Reservation, error) {
	in := map[string]string{"resource_id": resourceID, "owner_id": ownerID}
	var out chains.Reservation
	if err := s.post(ctx, "/reservations", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApprovalService talks to the approval pipeline service.
type ApprovalService struct {
	rest
}

// NewApprovalService creates a client for the approvals service.
func NewApprovalService(baseURL string, opts ...Option) *ApprovalService {
	return &ApprovalService{rest: newREST(baseURL, opts)}
}

// Pending returns the owner's in-flight approval requests.
func (s *ApprovalService) Pending(ctx context.Context, ownerID string) ([]chains.Approval, error) {
	var out []chains.Approval
	err := s.get(ctx, "/approvals", url.Values{"owner_id": {ownerID}}, &out)
	return out, err
}

// Status returns the current state of one request.
func (s *ApprovalService) Status(ctx context.Context, requestID string) (*chains.Approval, error) {
	var out chains.Approval
	if err := s.get(ctx, "/approvals/"+url.PathEscape(requestID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
