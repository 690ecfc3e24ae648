package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampBounds(t *testing.T) {
	assert.Equal(t, int64(0), Clamp(AttrTreasury, -50))
	assert.Equal(t, int64(100), Clamp(AttrStability, 150))
	assert.Equal(t, int64(42), Clamp(AttrStability, 42))
}

func TestAddAttrClamps(t *testing.T) {
	c := &Country{Stability: 95, Treasury: 10}

	c.AddAttr(AttrStability, 20)
	assert.Equal(t, int64(100), c.Stability)

	c.AddAttr(AttrTreasury, -50)
	assert.Equal(t, int64(0), c.Treasury)
}

func TestAttributeDeltaApplyTo(t *testing.T) {
	c := &Country{Population: 1000, Military: 50}
	d := AttributeDelta{
		AttrPopulation: -200,
		AttrMilitary:   10,
	}
	d.ApplyTo(c)

	assert.Equal(t, int64(800), c.Population)
	assert.Equal(t, int64(60), c.Military)
}

func TestFormatYear(t *testing.T) {
	assert.Equal(t, "3000 BCE", FormatYear(-3000))
	assert.Equal(t, "1 CE", FormatYear(1))
	assert.Equal(t, "0 CE", FormatYear(0))
}

func TestValidActionKind(t *testing.T) {
	assert.True(t, ValidActionKind(ActionBuildProject))
	assert.True(t, ValidActionKind(ActionAttack))
	assert.False(t, ValidActionKind("conquer-the-moon"))
}

func TestRelationKindSymmetric(t *testing.T) {
	assert.True(t, RelationAlliance.Symmetric())
	assert.True(t, RelationTrade.Symmetric())
	assert.False(t, RelationConflict.Symmetric())
	assert.False(t, RelationNeutral.Symmetric())
}
