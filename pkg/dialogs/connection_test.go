package dialogs

import (
	"context"
	"errors"
	"testing"

	"github.com/compozy/flowctl/pkg/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ListPieceOptions(ctx context.Context) ([]PieceOption, error) {
	args := m.Called(ctx)
	pieces, _ := args.Get(0).([]PieceOption)
	return pieces, args.Error(1)
}

type mockCreator struct {
	mock.Mock
}

func (m *mockCreator) CreateConnection(ctx context.Context, piece string, in ConnectionInput) (Created, error) {
	args := m.Called(ctx, piece, in)
	return args.Get(0).(Created), args.Error(1)
}

func catalogPieces() []PieceOption {
	return []PieceOption{
		{Name: "@activepieces/piece-slack", DisplayName: "Slack", HasAuth: true},
		{Name: "@activepieces/piece-gmail", DisplayName: "Gmail", HasAuth: true},
		{Name: "@activepieces/piece-schedule", DisplayName: "Schedule"},
		{Name: "@activepieces/piece-google-sheets", DisplayName: "Google Sheets", HasAuth: true},
	}
}

func openDialog(t *testing.T, creator *mockCreator, onCreated func(Created)) *NewConnectionDialog {
	t.Helper()
	catalog := &mockCatalog{}
	catalog.On("ListPieceOptions", mock.Anything).Return(catalogPieces(), nil)
	d, err := NewNewConnectionDialog(NewConnectionConfig{Catalog: catalog, Creator: creator, OnCreated: onCreated})
	require.NoError(t, err)
	require.NoError(t, d.Open(t.Context()))
	return d
}

func names(pieces []PieceOption) []string {
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, p.DisplayName)
	}
	return out
}

func TestNewConnectionDialog_Candidates(t *testing.T) {
	t.Run("Should exclude pieces without auth", func(t *testing.T) {
		d := openDialog(t, &mockCreator{}, nil)
		assert.Equal(t, []string{"Slack", "Gmail", "Google Sheets"}, names(d.Candidates()))
	})

	t.Run("Should filter by display name case-insensitively", func(t *testing.T) {
		d := openDialog(t, &mockCreator{}, nil)
		d.SetSearch("GOO")
		assert.Equal(t, []string{"Google Sheets"}, names(d.Candidates()))
		d.SetSearch("zzz")
		assert.Empty(t, d.Candidates())
	})
}

func TestNewConnectionDialog_Transitions(t *testing.T) {
	t.Run("Should start closed and move to type selection on open", func(t *testing.T) {
		d := openDialog(t, &mockCreator{}, nil)
		assert.Equal(t, StateSelectingType, d.State())
	})

	t.Run("Should stay closed when the catalog fails", func(t *testing.T) {
		catalog := &mockCatalog{}
		catalog.On("ListPieceOptions", mock.Anything).Return(nil, errors.New("offline"))
		d, err := NewNewConnectionDialog(NewConnectionConfig{Catalog: catalog, Creator: &mockCreator{}})
		require.NoError(t, err)
		assert.Error(t, d.Open(t.Context()))
		assert.Equal(t, StateClosed, d.State())
	})

	t.Run("Should require a selected subtype before configuring", func(t *testing.T) {
		catalog := &mockCatalog{}
		d, err := NewNewConnectionDialog(NewConnectionConfig{Catalog: catalog, Creator: &mockCreator{}})
		require.NoError(t, err)

		assert.Error(t, d.Select("@activepieces/piece-slack"))
		_, err = d.Submit(t.Context(), ConnectionInput{Name: "x"})
		assert.ErrorIs(t, err, listing.ErrNoSubtypeSelected)
		assert.Equal(t, StateClosed, d.State())
	})

	t.Run("Should reject empty and unknown selections", func(t *testing.T) {
		d := openDialog(t, &mockCreator{}, nil)
		assert.ErrorIs(t, d.Select(""), listing.ErrNoSubtypeSelected)
		assert.True(t, listing.IsValidation(d.Select("@activepieces/piece-schedule")))
		assert.Equal(t, StateSelectingType, d.State())
	})

	t.Run("Should cancel from either stage without side effects", func(t *testing.T) {
		creator := &mockCreator{}
		d := openDialog(t, creator, nil)
		d.Cancel()
		assert.Equal(t, StateClosed, d.State())

		require.NoError(t, d.Open(t.Context()))
		require.NoError(t, d.Select("@activepieces/piece-slack"))
		d.Cancel()
		assert.Equal(t, StateClosed, d.State())
		_, ok := d.Selected()
		assert.False(t, ok)
		creator.AssertNotCalled(t, "CreateConnection", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNewConnectionDialog_Submit(t *testing.T) {
	input := ConnectionInput{Name: "slack-prod", Type: "SECRET_TEXT", Value: map[string]string{"secret_text": "xoxb"}}

	t.Run("Should create, notify and close", func(t *testing.T) {
		creator := &mockCreator{}
		creator.On("CreateConnection", mock.Anything, "@activepieces/piece-slack", input).
			Return(Created{Name: "slack-prod", ID: "conn-1"}, nil).Once()
		var notified []Created
		d := openDialog(t, creator, func(c Created) { notified = append(notified, c) })
		require.NoError(t, d.Select("@activepieces/piece-slack"))

		created, err := d.Submit(t.Context(), input)

		require.NoError(t, err)
		assert.Equal(t, "conn-1", created.ID)
		assert.Equal(t, []Created{{Name: "slack-prod", ID: "conn-1"}}, notified)
		assert.Equal(t, StateClosed, d.State())
		creator.AssertExpectations(t)
	})

	t.Run("Should reject invalid input locally", func(t *testing.T) {
		creator := &mockCreator{}
		d := openDialog(t, creator, nil)
		require.NoError(t, d.Select("@activepieces/piece-slack"))

		_, err := d.Submit(t.Context(), ConnectionInput{Name: "  ", Type: "SECRET_TEXT", Value: map[string]string{"a": "b"}})

		var ve *listing.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "name", ve.Field)
		assert.Equal(t, StateConfiguringInstance, d.State())
		creator.AssertNotCalled(t, "CreateConnection", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should create a NO_AUTH connection without values", func(t *testing.T) {
		creator := &mockCreator{}
		want := ConnectionInput{Name: "public", Type: AuthNone}
		creator.On("CreateConnection", mock.Anything, "@activepieces/piece-slack", want).
			Return(Created{Name: "public", ID: "conn-2"}, nil).Once()
		d := openDialog(t, creator, nil)
		require.NoError(t, d.Select("@activepieces/piece-slack"))

		_, err := d.Submit(t.Context(), ConnectionInput{Name: "public", Type: AuthNone, Value: map[string]string{}})

		require.NoError(t, err)
		creator.AssertExpectations(t)
	})

	t.Run("Should require every field of the auth type and drop the rest", func(t *testing.T) {
		creator := &mockCreator{}
		want := ConnectionInput{Name: "oauth", Type: AuthOAuth2, Value: map[string]string{"access_token": "tok"}}
		creator.On("CreateConnection", mock.Anything, "@activepieces/piece-gmail", want).
			Return(Created{Name: "oauth", ID: "conn-3"}, nil).Once()
		d := openDialog(t, creator, nil)
		require.NoError(t, d.Select("@activepieces/piece-gmail"))

		_, err := d.Submit(t.Context(), ConnectionInput{Name: "basic", Type: AuthBasic, Value: map[string]string{"username": "u"}})
		var ve *listing.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "value", ve.Field)
		assert.Contains(t, ve.Error(), "password")

		_, err = d.Submit(t.Context(), ConnectionInput{
			Name:  "oauth",
			Type:  AuthOAuth2,
			Value: map[string]string{"access_token": "tok", "secret_text": "stale"},
		})
		require.NoError(t, err)
		creator.AssertExpectations(t)
	})

	t.Run("Should stay in configuration when creation fails", func(t *testing.T) {
		creator := &mockCreator{}
		creator.On("CreateConnection", mock.Anything, mock.Anything, mock.Anything).
			Return(Created{}, &listing.ServerError{StatusCode: 500}).Once()
		called := false
		d := openDialog(t, creator, func(Created) { called = true })
		require.NoError(t, d.Select("@activepieces/piece-gmail"))

		_, err := d.Submit(t.Context(), input)

		assert.Equal(t, 500, listing.StatusCode(err))
		assert.False(t, called)
		assert.Equal(t, StateConfiguringInstance, d.State())
	})
}

func TestValueFields(t *testing.T) {
	t.Run("Should list the keys of each auth type", func(t *testing.T) {
		assert.Equal(t, []string{"secret_text"}, ValueFields(AuthSecretText))
		assert.Equal(t, []string{"username", "password"}, ValueFields(AuthBasic))
		assert.Nil(t, ValueFields(AuthNone))
	})

	t.Run("Should give every declared auth type a defined value shape", func(t *testing.T) {
		for _, authType := range AuthTypes() {
			if authType == AuthNone {
				continue
			}
			assert.NotEmpty(t, ValueFields(authType), authType)
		}
	})
}
