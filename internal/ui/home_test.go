package ui

import (
	"strings"
	"testing"

	"github.com/abelbrown/postbook/internal/controller"
	"github.com/abelbrown/postbook/internal/controller/controllers"
	"github.com/abelbrown/postbook/internal/model"
)

func TestRenderListEmpty(t *testing.T) {
	got := RenderList(nil, 0, 80, 10)
	if !strings.Contains(got, "No posts yet") {
		t.Errorf("expected empty hint, got %q", got)
	}
}

func TestRenderListScrollsToCursor(t *testing.T) {
	var posts []model.Post
	for i := 1; i <= 20; i++ {
		posts = append(posts, model.Post{ID: int64(i), Title: strings.Repeat("x", i), Author: "a"})
	}

	got := RenderList(posts, 19, 80, 5)
	if n := strings.Count(got, "\n"); n != 5 {
		t.Errorf("expected 5 rows, got %d", n)
	}
	if !strings.Contains(got, strings.Repeat("x", 20)) {
		t.Error("cursor row should be visible")
	}
	if strings.Contains(got, " "+strings.Repeat("x", 15)+" ") {
		t.Error("first row should have scrolled away")
	}
}

func TestCalcScrollOffset(t *testing.T) {
	tests := []struct {
		total, cursor, height, want int
	}{
		{0, 0, 5, 0},
		{3, 2, 5, 0},
		{10, 4, 5, 0},
		{10, 5, 5, 1},
		{10, 9, 5, 5},
		{10, 50, 5, 5},
		{10, -1, 5, 0},
	}
	for _, tt := range tests {
		if got := calcScrollOffset(tt.total, tt.cursor, tt.height); got != tt.want {
			t.Errorf("calcScrollOffset(%d, %d, %d) = %d, want %d", tt.total, tt.cursor, tt.height, got, tt.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated text", 8, "trunc..."},
		{"héllo wörld", 6, "hél..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestRenderDetailsOutOfStock(t *testing.T) {
	got := RenderDetails(controllers.DetailsState{OutOfStock: true}, 80)
	if !strings.Contains(got, "Out of stock") {
		t.Errorf("expected out of stock marker, got:\n%s", got)
	}

	got = RenderDetails(controllers.DetailsState{Details: controller.PostDetails{ID: 3, Title: "Apples", Author: "20"}}, 80)
	if strings.Contains(got, "Out of stock") || !strings.Contains(got, "Apples") {
		t.Errorf("unexpected details render:\n%s", got)
	}
}

func TestFormRoundTrip(t *testing.T) {
	d := controller.PostDetails{ID: 4, Title: "t", Description: "d", Author: "a"}
	f := newForm(d)
	if got := f.details(4); got != d {
		t.Errorf("got %+v, want %+v", got, d)
	}
	if f.focus != fieldTitle {
		t.Errorf("title should start focused")
	}
}
