package postgres

import (
	"encoding/json"
	"testing"

	"carpool/internal/domain"
)

func TestRideSnapshot_KeepsOwnership(t *testing.T) {
	ride := domain.Ride{
		ID:              "ride-1",
		OrganizerID:     "organizer-1",
		LegacyCreatedBy: "legacy-owner",
		Status:          domain.RideStatusCancelled,
	}

	raw, err := json.Marshal(newRideSnapshot(ride))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var snap rideSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := snap.toRide()
	if got.OrganizerID != "organizer-1" || got.LegacyCreatedBy != "legacy-owner" {
		t.Errorf("ownership lost in snapshot: %+v", got)
	}
	if !got.IsOrganizer("legacy-owner") {
		t.Error("legacy owner must still own the archived ride")
	}
}
