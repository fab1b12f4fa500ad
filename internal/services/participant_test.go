package services

import (
	"context"
	"testing"

	"eventcore/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantService_CreateParticipant(t *testing.T) {
	ctx := context.Background()
	phone := "5551234567"

	tests := []struct {
		name    string
		input   *domain.Participant
		wantErr error
	}{
		{
			name:  "success",
			input: domain.NewParticipant("Grace", "Hopper", "grace@example.com", &phone, "DOC77777"),
		},
		{
			name:    "duplicate email",
			input:   domain.NewParticipant("Grace", "Hopper", "taken@example.com", nil, "DOC77777"),
			wantErr: domain.ErrDuplicateEmail,
		},
		{
			name:    "duplicate document",
			input:   domain.NewParticipant("Grace", "Hopper", "grace@example.com", nil, "DOCTAKEN"),
			wantErr: domain.ErrDuplicateDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			existing := domain.NewParticipant("Ada", "Lovelace", "taken@example.com", nil, "DOCTAKEN")
			_, err := f.participants.CreateParticipant(ctx, existing)
			require.NoError(t, err)

			got, err := f.participants.CreateParticipant(ctx, tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.ErrorIs(t, err, domain.ErrDuplicate)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, domain.ParticipantStatusActive, got.Status)
			assert.Equal(t, testNow, got.CreatedAt)
			require.NotNil(t, got.Phone)
			assert.Equal(t, phone, *got.Phone)
		})
	}
}

func TestParticipantService_UpdateParticipant(t *testing.T) {
	ctx := context.Background()

	t.Run("unchanged unique fields are not rechecked", func(t *testing.T) {
		f := newFixture(t)
		p := f.createParticipant(t)
		changes := *p
		changes.FirstName = "Augusta"

		got, keys, err := f.participants.UpdateParticipant(ctx, p.ID, &changes)
		require.NoError(t, err)
		assert.Equal(t, "Augusta", got.FirstName)
		assert.Equal(t, []string{domain.ParticipantCacheKey(p.ID)}, keys)
	})

	t.Run("changed email must be free", func(t *testing.T) {
		f := newFixture(t)
		p := f.createParticipant(t)
		other := f.createParticipant(t)
		changes := *p
		changes.Email = other.Email

		_, _, err := f.participants.UpdateParticipant(ctx, p.ID, &changes)
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("changed document must be free", func(t *testing.T) {
		f := newFixture(t)
		p := f.createParticipant(t)
		other := f.createParticipant(t)
		changes := *p
		changes.DocumentNumber = other.DocumentNumber

		_, _, err := f.participants.UpdateParticipant(ctx, p.ID, &changes)
		require.ErrorIs(t, err, domain.ErrDuplicateDocument)
	})

	t.Run("status is not changed by update", func(t *testing.T) {
		f := newFixture(t)
		p := f.createParticipant(t)
		changes := *p
		changes.Status = domain.ParticipantStatusBlocked

		got, _, err := f.participants.UpdateParticipant(ctx, p.ID, &changes)
		require.NoError(t, err)
		assert.Equal(t, domain.ParticipantStatusActive, got.Status)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.participants.UpdateParticipant(ctx, "missing", &domain.Participant{})
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, "participant not found: missing", err.Error())
	})
}

func TestParticipantService_UpdateParticipantStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createParticipant(t)

	got, keys, err := f.participants.UpdateParticipantStatus(ctx, p.ID, domain.ParticipantStatusInactive)
	require.NoError(t, err)
	assert.Equal(t, domain.ParticipantStatusInactive, got.Status)
	assert.Equal(t, []string{domain.ParticipantCacheKey(p.ID)}, keys)

	_, _, err = f.participants.UpdateParticipantStatus(ctx, p.ID, "DELETED")
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	inactive, err := f.participants.ListParticipantsByStatus(ctx, domain.ParticipantStatusInactive)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, p.ID, inactive[0].ID)
}

func TestParticipantService_DeleteParticipant(t *testing.T) {
	ctx := context.Background()

	t.Run("guarded by attendances", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, 2)
		p := f.createParticipant(t)
		_, _, err := f.attendance.Register(ctx, e.ID, p.ID)
		require.NoError(t, err)

		_, err = f.participants.DeleteParticipant(ctx, p.ID)
		require.ErrorIs(t, err, domain.ErrParticipantHasAttendances)
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		p := f.createParticipant(t)
		keys, err := f.participants.DeleteParticipant(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{domain.ParticipantCacheKey(p.ID)}, keys)

		_, err = f.participants.GetParticipantByID(ctx, p.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestParticipantService_Reads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createParticipant(t)

	byEmail, err := f.participants.GetParticipantByEmail(ctx, p.Email)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byEmail.ID)

	_, err = f.participants.GetParticipantByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)

	all, err := f.participants.ListParticipants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
