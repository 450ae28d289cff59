package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

var defaultEntries = []domain.LabelEntry{
	{Status: domain.RoomFree, Localized: "空闲", Normalized: "available"},
	{Status: domain.RoomOccupied, Localized: "使用中", Normalized: "occupied"},
}

func TestLabels_BijectiveProperty(t *testing.T) {
	labels, err := domain.NewLabels(defaultEntries)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		status := rapid.SampledFrom(domain.RoomStatuses).Draw(t, "status")
		pad := strings.Repeat(" ", rapid.IntRange(0, 3).Draw(t, "pad"))
		upper := rapid.Bool().Draw(t, "upper")

		for _, label := range []string{string(status), labels.Localized(status), labels.Normalized(status)} {
			if upper {
				label = strings.ToUpper(label)
			}
			got, ok := labels.Parse(pad + label + pad)
			if !ok || got != status {
				t.Fatalf("label %q parsed to %q (ok=%v), want %q", label, got, ok, status)
			}
		}
	})
}

func TestLabels_EveryStatusHasDistinctLabels(t *testing.T) {
	labels, err := domain.NewLabels(defaultEntries)
	require.NoError(t, err)

	seen := map[string]domain.RoomStatus{}
	for _, s := range domain.RoomStatuses {
		for _, l := range []string{labels.Localized(s), labels.Normalized(s)} {
			require.NotEmpty(t, l)
			if prev, ok := seen[l]; ok {
				assert.Equal(t, prev, s, "label %q shared", l)
			}
			seen[l] = s
		}
	}
}

func TestNewLabels_RejectsInvalidTables(t *testing.T) {
	tests := []struct {
		name    string
		entries []domain.LabelEntry
	}{
		{name: "missing_status", entries: defaultEntries[:1]},
		{name: "unknown_status", entries: append([]domain.LabelEntry{{Status: "cleaning", Localized: "x", Normalized: "y"}}, defaultEntries...)},
		{name: "duplicate_status", entries: append([]domain.LabelEntry{defaultEntries[0]}, defaultEntries...)},
		{name: "empty_label", entries: []domain.LabelEntry{{Status: domain.RoomFree, Localized: "", Normalized: "available"}, defaultEntries[1]}},
		{name: "ambiguous_label", entries: []domain.LabelEntry{
			{Status: domain.RoomFree, Localized: "空闲", Normalized: "occupied"},
			defaultEntries[1],
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewLabels(tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestBookingStatus_Normalize(t *testing.T) {
	tests := map[domain.BookingStatus]domain.BookingStatus{
		"active":    domain.BookingPaid,
		"ACTIVE":    domain.BookingPaid,
		"paid":      domain.BookingPaid,
		"canceled":  domain.BookingCancelled,
		"cancelled": domain.BookingCancelled,
		"pending":   domain.BookingPending,
		"refunded":  "refunded",
	}
	for in, want := range tests {
		assert.Equal(t, want, in.Normalize(), string(in))
	}
}

func TestScopeForPath(t *testing.T) {
	assert.Equal(t, domain.ScopeAdmin, domain.ScopeForPath("/admin/rooms"))
	assert.Equal(t, domain.ScopeAdmin, domain.ScopeForPath("/adminlogin"))
	assert.Equal(t, domain.ScopeUser, domain.ScopeForPath("/rooms"))
	assert.Equal(t, domain.ScopeUser, domain.ScopeForPath(""))

	assert.Equal(t, "/adminlogin", domain.ScopeAdmin.LoginPath())
	assert.Equal(t, "/login", domain.ScopeUser.LoginPath())
}

func TestPage_WithDefaults(t *testing.T) {
	assert.Equal(t, domain.Page{Number: 1, Size: 8}, domain.Page{}.WithDefaults())
	assert.Equal(t, domain.Page{Number: 3, Size: 20}, domain.Page{Number: 3, Size: 20}.WithDefaults())
}

func TestError_KindsMatchWithErrorsIs(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := domain.NewTransportError("network error", cause)

	assert.True(t, errors.Is(err, domain.ErrTransport))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, domain.ErrAuth))
	assert.Equal(t, "network error", err.Error())

	var derr *domain.Error
	require.True(t, errors.As(error(domain.NewBusinessError(200, 409, "room taken")), &derr))
	assert.Equal(t, 409, derr.Code)
}
