package request

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/docmatch/internal/domain"
)

func TestFromBody(t *testing.T) {
	r, err := FromBody("alice", "doc-1", "Наказ про відрядження\nПідписано директором")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Наказ про відрядження", "Підписано директором"}
	if !reflect.DeepEqual(r.Lines, want) {
		t.Errorf("lines = %v, want %v", r.Lines, want)
	}
	if r.Body() != "Наказ про відрядження\nПідписано директором" {
		t.Errorf("body = %q", r.Body())
	}
}

func TestFromBody_Validation(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		docID    string
	}{
		{"missing client", "", "doc"},
		{"missing doc", "alice", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBody(tt.clientID, tt.docID, "x")
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestIsInsider(t *testing.T) {
	if !(Request{ClientID: Insider}).IsInsider() {
		t.Error("insider client must be recognized")
	}
	if (Request{ClientID: "alice"}).IsInsider() {
		t.Error("regular client must not be insider")
	}
}
