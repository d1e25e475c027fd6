package kontent_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/JaimeStill/kontrib/internal/kontent"
)

func TestNormalizeShapes(t *testing.T) {
	want := []kontent.User{{ID: "u1", Email: "ana@example.com"}}

	tests := []struct {
		name string
		body string
	}{
		{"bare array", `[{"id":"u1","email":"ana@example.com"}]`},
		{"data", `{"data":[{"id":"u1","email":"ana@example.com"}]}`},
		{"items", `{"items":[{"id":"u1","email":"ana@example.com"}]}`},
		{"elements", `{"elements":[{"id":"u1","email":"ana@example.com"}]}`},
		{"resource key", `{"users":[{"id":"u1","email":"ana@example.com"}],"pagination":{"continuation_token":null}}`},
		{"non-array data skipped", `{"data":{"x":1},"users":[{"id":"u1","email":"ana@example.com"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := kontent.Normalize[kontent.User]([]byte(tt.body), "users")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestNormalizeEmptyArray(t *testing.T) {
	got, err := kontent.Normalize[kontent.User]([]byte(`{"users":[]}`), "users")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNormalizeRejectsUnknownShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		got  string
	}{
		{"empty", ``, "empty body"},
		{"string", `"users"`, "string"},
		{"number", `42`, "number"},
		{"null", `null`, "null"},
		{"object without list", `{"total":3,"users":{"id":"u1"}}`, "object with keys [total users]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := kontent.Normalize[kontent.User]([]byte(tt.body), "users")
			require.Error(t, err)
			assert.ErrorIs(t, err, kontent.ErrMalformedResponse)

			var shapeErr *kontent.ShapeError
			require.True(t, errors.As(err, &shapeErr))
			assert.Equal(t, "users", shapeErr.Resource)
			assert.Equal(t, tt.got, shapeErr.Got)
			assert.Contains(t, err.Error(), "invalid response format from users API")
		})
	}
}

func TestNormalizeMalformedEntries(t *testing.T) {
	_, err := kontent.Normalize[kontent.User]([]byte(`{"users":[{"id":1}]}`), "users")
	require.Error(t, err)
	assert.ErrorIs(t, err, kontent.ErrMalformedResponse)
}

// Every recognized envelope of the same list decodes to the same slice.
func TestNormalizeEnvelopeEquivalence(t *testing.T) {
	userGen := rapid.Custom(func(t *rapid.T) kontent.User {
		return kontent.User{
			ID:        rapid.StringMatching(`[a-f0-9]{8}`).Draw(t, "id"),
			Email:     rapid.StringMatching(`[a-z]{1,8}@example\.com`).Draw(t, "email"),
			FirstName: rapid.StringMatching(`[A-Za-z]{0,8}`).Draw(t, "first"),
		}
	})

	rapid.Check(t, func(t *rapid.T) {
		users := rapid.SliceOfN(userGen, 0, 8).Draw(t, "users")
		if users == nil {
			users = []kontent.User{}
		}
		key := rapid.SampledFrom([]string{"", "data", "items", "elements", "users"}).Draw(t, "key")

		list, err := json.Marshal(users)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body := list
		if key != "" {
			body, _ = json.Marshal(map[string]json.RawMessage{key: list})
		}

		got, err := kontent.Normalize[kontent.User](body, "users")
		if err != nil {
			t.Fatalf("normalize %s: %v", body, err)
		}
		if len(got) != len(users) {
			t.Fatalf("got %d users, want %d", len(got), len(users))
		}
		for i := range users {
			if got[i] != users[i] {
				t.Fatalf("user %d: got %+v, want %+v", i, got[i], users[i])
			}
		}
	})
}
