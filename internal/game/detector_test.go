// internal/game/detector_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func marks(nums ...int) map[int]struct{} {
	m := make(map[int]struct{}, len(nums))
	for _, n := range nums {
		m[n] = struct{}{}
	}
	return m
}

func awarded(cats ...Category) map[Category]struct{} {
	a := make(map[Category]struct{}, len(cats))
	for _, c := range cats {
		a[c] = struct{}{}
	}
	return a
}

var detectorTicket = Ticket{
	{1, 0, 0, 14, 0, 0, 0, 61, 0},
	{0, 11, 22, 0, 45, 0, 0, 0, 82},
	{5, 0, 0, 0, 0, 55, 66, 77, 0},
}

// A full 5-per-row ticket used for the full-house path.
var fullTicket = Ticket{
	{1, 0, 20, 34, 0, 51, 0, 0, 80},
	{2, 11, 0, 0, 42, 0, 65, 0, 81},
	{0, 12, 25, 0, 0, 56, 0, 76, 90},
}

func TestEvaluateTopLine(t *testing.T) {
	// Calls [1, 14, 61] complete the top row and nothing else.
	got := Evaluate(detectorTicket, marks(1, 14, 61), awarded())
	assert.Equal(t, []Category{CategoryTopLine}, got)
}

func TestEvaluateEarlyFive(t *testing.T) {
	assert.Empty(t, Evaluate(detectorTicket, marks(1, 14, 61, 11), awarded()))

	got := Evaluate(detectorTicket, marks(1, 14, 61, 11, 5), awarded())
	assert.Contains(t, got, CategoryEarlyFive)
	assert.Contains(t, got, CategoryTopLine)

	// A sixth mark does not retroactively disqualify Early Five.
	got = Evaluate(detectorTicket, marks(1, 14, 61, 11, 5, 22), awarded())
	assert.Contains(t, got, CategoryEarlyFive)
}

func TestEvaluateMiddleAndBottomLine(t *testing.T) {
	got := Evaluate(detectorTicket, marks(11, 22, 45, 82), awarded())
	assert.Equal(t, []Category{CategoryMiddleLine}, got)

	got = Evaluate(detectorTicket, marks(5, 55, 66, 77), awarded())
	assert.Equal(t, []Category{CategoryBottomLine}, got)
}

func TestEvaluateFullHouse(t *testing.T) {
	all := fullTicket.Numbers()
	got := Evaluate(fullTicket, marks(all...), awarded())
	assert.Contains(t, got, CategoryFullHouse)
	assert.Contains(t, got, CategoryEarlyFive)
	assert.Contains(t, got, CategoryTopLine)
	assert.Contains(t, got, CategoryMiddleLine)
	assert.Contains(t, got, CategoryBottomLine)

	// One short of a full house.
	got = Evaluate(fullTicket, marks(all[:14]...), awarded())
	assert.NotContains(t, got, CategoryFullHouse)
}

func TestEvaluateExcludesAwarded(t *testing.T) {
	// Marks satisfy the top line, but the category is already taken: a
	// player completing the pattern later cannot win it.
	got := Evaluate(detectorTicket, marks(1, 14, 61), awarded(CategoryTopLine))
	assert.Empty(t, got)

	got = Evaluate(detectorTicket, marks(1, 14, 61, 11, 5), awarded(CategoryEarlyFive, CategoryTopLine))
	assert.Empty(t, got)
}

func TestEvaluateEmptyMarks(t *testing.T) {
	assert.Empty(t, Evaluate(detectorTicket, marks(), awarded()))
}
