package interpreter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ancientworld/internal/config"
	"ancientworld/internal/store"
	"ancientworld/internal/world"
)

// fakeGen returns a canned response, or world.ErrGenerationUnavailable
// when unavailable is set.
type fakeGen struct {
	response    string
	unavailable bool
}

func (f *fakeGen) Generate(_ context.Context, _, _ string, _ int) (string, error) {
	if f.unavailable {
		return "", world.ErrGenerationUnavailable
	}
	return f.response, nil
}

func testGame() config.Game {
	return config.Game{
		StartYear:          -3000,
		ProjectThreshold:   100,
		ProjectIncrement:   25,
		DefaultProjectCost: 80,
		PolicyStep:         5,
		MaxPolicyDelta:     10,
		ContextEvents:      5,
	}
}

func setup(t *testing.T, gen *fakeGen) (*Interpreter, *store.Store, *world.Country, *world.Country) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	a := &world.Country{OwnerID: 1, Name: "Akkad", Treasury: 100, Military: 100, Stability: 50, Population: 10000, Territory: 100}
	b := &world.Country{OwnerID: 2, Name: "Elam", Treasury: 100, Military: 100, Stability: 50, Population: 10000, Territory: 100}
	require.NoError(t, st.CreateCountry(ctx, a))
	require.NoError(t, st.CreateCountry(ctx, b))

	var it *Interpreter
	if gen != nil {
		it = New(st, nil, gen, testGame())
	} else {
		it = New(st, nil, nil, testGame())
	}
	return it, st, a, b
}

func TestInterpretBuildFromJSON(t *testing.T) {
	gen := &fakeGen{response: `The ruler wants to build.
{"action":"build-project","project_name":"Great Ziggurat","project_kind":"construction","cost":60,"summary":"build a ziggurat"}`}
	it, _, a, _ := setup(t, gen)

	action, err := it.Interpret(context.Background(), a.ID, "Build a great ziggurat to honor the gods")
	require.NoError(t, err)
	assert.Equal(t, world.ActionBuildProject, action.Kind)
	assert.Equal(t, "Great Ziggurat", action.ProjectName)
	assert.Equal(t, world.ProjectConstruction, action.ProjectKind)
	assert.Equal(t, int64(60), action.Cost)
}

func TestInterpretBuildDefaultsCost(t *testing.T) {
	gen := &fakeGen{response: `{"action":"build-project","project_name":"Walls","project_kind":"construction"}`}
	it, _, a, _ := setup(t, gen)

	action, err := it.Interpret(context.Background(), a.ID, "Raise walls around the city")
	require.NoError(t, err)
	assert.Equal(t, int64(80), action.Cost)
}

func TestInterpretBuildTooExpensive(t *testing.T) {
	gen := &fakeGen{response: `{"action":"build-project","project_name":"Colossus","project_kind":"construction","cost":500}`}
	it, _, a, _ := setup(t, gen)

	_, err := it.Interpret(context.Background(), a.ID, "Build a colossus")
	assert.ErrorIs(t, err, world.ErrForbiddenAction)
}

func TestInterpretAttackResolvesTarget(t *testing.T) {
	gen := &fakeGen{response: `{"action":"attack","target":"Elam"}`}
	it, _, a, b := setup(t, gen)

	action, err := it.Interpret(context.Background(), a.ID, "March on Elam at dawn")
	require.NoError(t, err)
	assert.Equal(t, world.ActionAttack, action.Kind)
	assert.Equal(t, b.ID, action.TargetID)
	assert.Equal(t, world.RelationConflict, action.RelationKind)
}

func TestInterpretUnknownTarget(t *testing.T) {
	gen := &fakeGen{response: `{"action":"attack","target":"Atlantis"}`}
	it, _, a, _ := setup(t, gen)

	_, err := it.Interpret(context.Background(), a.ID, "March on Atlantis")
	assert.ErrorIs(t, err, world.ErrForbiddenAction)
}

func TestInterpretSelfTargetForbidden(t *testing.T) {
	gen := &fakeGen{response: `{"action":"attack","target":"Akkad"}`}
	it, _, a, _ := setup(t, gen)

	_, err := it.Interpret(context.Background(), a.ID, "Attack ourselves")
	assert.ErrorIs(t, err, world.ErrForbiddenAction)
}

func TestInterpretAcceptWithoutProposal(t *testing.T) {
	gen := &fakeGen{response: `{"action":"accept-relation","target":"Elam"}`}
	it, _, a, _ := setup(t, gen)

	_, err := it.Interpret(context.Background(), a.ID, "Accept the offer from Elam")
	assert.ErrorIs(t, err, world.ErrForbiddenAction)
}

func TestInterpretAcceptPendingProposal(t *testing.T) {
	gen := &fakeGen{response: `{"action":"accept-relation","target":"Elam"}`}
	it, st, a, b := setup(t, gen)
	ctx := context.Background()

	bCopy := *b
	require.NoError(t, st.Apply(ctx, store.Mutation{
		Country:          &bCopy,
		ExpectedRevision: bCopy.Revision,
		Relations: []world.Relation{{
			FromID: b.ID, ToID: a.ID,
			Kind: world.RelationAlliance, Status: world.RelationPending,
			ProposedYear: -3000, ExpiresYear: -2997,
		}},
	}))

	action, err := it.Interpret(ctx, a.ID, "Accept the alliance from Elam")
	require.NoError(t, err)
	assert.Equal(t, world.ActionAcceptRel, action.Kind)
	assert.Equal(t, world.RelationAlliance, action.RelationKind)
}

func TestInterpretPolicyBounds(t *testing.T) {
	gen := &fakeGen{response: `{"action":"policy-change","attribute":"military","delta":50}`}
	it, _, a, _ := setup(t, gen)

	_, err := it.Interpret(context.Background(), a.ID, "Raise a vast army at once")
	assert.ErrorIs(t, err, world.ErrForbiddenAction)
}

func TestInterpretUnknownAttribute(t *testing.T) {
	gen := &fakeGen{response: `{"action":"policy-change","attribute":"happiness","delta":5}`}
	it, _, a, _ := setup(t, gen)

	_, err := it.Interpret(context.Background(), a.ID, "Make the people happy")
	assert.ErrorIs(t, err, world.ErrUnintelligibleOrder)
}

func TestInterpretGarbageResponse(t *testing.T) {
	gen := &fakeGen{response: "I cannot decide what this means."}
	it, _, a, _ := setup(t, gen)

	_, err := it.Interpret(context.Background(), a.ID, "fnord fnord fnord")
	assert.ErrorIs(t, err, world.ErrUnintelligibleOrder)
}

func TestInterpretAnachronismRejected(t *testing.T) {
	it, _, a, _ := setup(t, &fakeGen{response: `{"action":"narrative-event"}`})

	_, err := it.Interpret(context.Background(), a.ID, "Equip the army with rifles")
	assert.ErrorIs(t, err, world.ErrForbiddenAction)
}

func TestInterpretEmptyOrder(t *testing.T) {
	it, _, a, _ := setup(t, nil)

	_, err := it.Interpret(context.Background(), a.ID, "   ")
	assert.ErrorIs(t, err, world.ErrUnintelligibleOrder)
}

func TestKeywordFallbackBuild(t *testing.T) {
	it, _, a, _ := setup(t, &fakeGen{unavailable: true})

	action, err := it.Interpret(context.Background(), a.ID, "Build an irrigation canal")
	require.NoError(t, err)
	assert.Equal(t, world.ActionBuildProject, action.Kind)
	assert.Equal(t, int64(80), action.Cost)
}

func TestKeywordFallbackAttackFindsTarget(t *testing.T) {
	it, _, a, b := setup(t, nil)

	action, err := it.Interpret(context.Background(), a.ID, "Invade Elam before the floods")
	require.NoError(t, err)
	assert.Equal(t, world.ActionAttack, action.Kind)
	assert.Equal(t, b.ID, action.TargetID)
}

func TestKeywordFallbackPolicy(t *testing.T) {
	it, _, a, _ := setup(t, nil)

	action, err := it.Interpret(context.Background(), a.ID, "Recruit more soldiers for the levy")
	require.NoError(t, err)
	assert.Equal(t, world.ActionPolicyChange, action.Kind)
	assert.Equal(t, world.AttrMilitary, action.Attribute)
	assert.Equal(t, int64(5), action.Delta)
}

func TestKeywordFallbackUnintelligible(t *testing.T) {
	it, _, a, _ := setup(t, nil)

	_, err := it.Interpret(context.Background(), a.ID, "the moon whispers softly")
	assert.ErrorIs(t, err, world.ErrUnintelligibleOrder)
}
