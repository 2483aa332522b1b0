package campus_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campushub/concierge/campus"
	"github.com/campushub/concierge/chains"
)

func TestMentorService_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mentors" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("expertise"); got != "IoT" {
			t.Errorf("expertise = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]chains.Mentor{
			{ID: "dr-lin", Name: "Dr. Lin", Available: true},
		})
	}))
	defer srv.Close()

	mentors, err := campus.NewMentorService(srv.URL).Search(context.Background(), "IoT")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(mentors) != 1 || mentors[0].ID != "dr-lin" {
		t.Errorf("mentors = %+v", mentors)
	}
}

func TestMentorService_Book(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bookings" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["mentor_id"] != "dr-lin" || in["slot"] != "mon-10" || in["owner_id"] != "u1" {
			t.Errorf("body = %v", in)
		}
		_ = json.NewEncoder(w).Encode(chains.Booking{ID: "b1", MentorID: "dr-lin", Slot: "mon-10"})
	}))
	defer srv.Close()

	b, err := campus.NewMentorService(srv.URL).Book(context.Background(), "dr-lin", "mon-10", "u1")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if b.ID != "b1" {
		t.Errorf("booking = %+v", b)
	}
}

func TestNotifyService_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := campus.NewNotifyService(srv.URL).Send(context.Background(), "u1", "hello")
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestInventoryService_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("category") != "rooms" || q.Get("q") != "quiet" {
			t.Errorf("query = %v", q)
		}
		_ = json.NewEncoder(w).Encode([]chains.Resource{
			{ID: "room-3a", Name: "Room 3A", Category: "rooms"},
		})
	}))
	defer srv.Close()

	rs, err := campus.NewInventoryService(srv.URL).Search(context.Background(), "rooms", "quiet")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rs) != 1 || rs[0].ID != "room-3a" {
		t.Errorf("resources = %+v", rs)
	}
}

func TestApprovalService_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/approvals/req-7" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(chains.Approval{ID: "req-7", State: "approved"})
	}))
	defer srv.Close()

	a, err := campus.NewApprovalService(srv.URL).Status(context.Background(), "req-7")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if a.State != "approved" {
		t.Errorf("approval = %+v", a)
	}
}

func TestSubmissionService_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("owner_id"); got != "u1" {
			t.Errorf("owner_id = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]chains.Submission{
			{ID: "s-1", Title: "Grant proposal", Status: "under review"},
		})
	}))
	defer srv.Close()

	subs, err := campus.NewSubmissionService(srv.URL).List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 || subs[0].Status != "under review" {
		t.Errorf("submissions = %+v", subs)
	}
}
