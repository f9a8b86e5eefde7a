package state

import (
	"testing"

	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction_Highlight(t *testing.T) {
	a, err := ParseAction([]byte(`{"type":"SET_HIGHLIGHT","highlight":{"type":"flow","origin":"AUS","dest":"DAL"}}`))
	require.NoError(t, err)
	assert.Equal(t, SetHighlight{Highlight: FlowHighlight{Origin: "AUS", Dest: "DAL"}}, a)

	a, err = ParseAction([]byte(`{"type":"SET_HIGHLIGHT","highlight":{"type":"location","location_id":"AUS"}}`))
	require.NoError(t, err)
	assert.Equal(t, SetHighlight{Highlight: LocationHighlight{LocationID: "AUS"}}, a)

	a, err = ParseAction([]byte(`{"type":"SET_HIGHLIGHT"}`))
	require.NoError(t, err)
	assert.Equal(t, SetHighlight{}, a, "no highlight clears it")
}

func TestParseAction_HighlightRequiresIDs(t *testing.T) {
	for _, body := range []string{
		`{"type":"SET_HIGHLIGHT","highlight":{"type":"location"}}`,
		`{"type":"SET_HIGHLIGHT","highlight":{"type":"flow","origin":"AUS"}}`,
		`{"type":"SET_HIGHLIGHT","highlight":{"type":"flow","dest":"DAL"}}`,
		`{"type":"SET_HIGHLIGHT","highlight":{"type":"area","location_id":"AUS"}}`,
	} {
		_, err := ParseAction([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestParseAction_ClampsViewStateZoom(t *testing.T) {
	a, err := ParseAction([]byte(`{"type":"SET_VIEW_STATE","view_state":{"zoom":42}}`))
	require.NoError(t, err)
	assert.Equal(t, float64(domain.MaxZoomLevel), a.(SetViewState).ViewState.Zoom)
}

func TestParseAction_Unknown(t *testing.T) {
	_, err := ParseAction([]byte(`{"type":"NOPE"}`))
	assert.ErrorIs(t, err, ErrUnknownAction)
}
