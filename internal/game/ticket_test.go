// internal/game/ticket_test.go
package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerateTicketInvariants checks the ticket shape over many random
// tickets: 15 numbers, 5 per row, 1 to 3 per column, column decades,
// ascending within columns.
func TestGenerateTicketInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		tk := generateTicket(r)

		require.Len(t, tk.Numbers(), 15, "ticket must hold exactly 15 numbers")

		for row := 0; row < 3; row++ {
			assert.Len(t, tk.Row(row), 5, "row %d must hold exactly 5 numbers", row)
		}

		seen := make(map[int]struct{})
		for col := 0; col < 9; col++ {
			lo, hi := columnRange(col)
			count := 0
			prev := 0
			for row := 0; row < 3; row++ {
				n := tk[row][col]
				if n == 0 {
					continue
				}
				count++
				require.GreaterOrEqual(t, n, lo, "column %d value %d below range", col, n)
				require.LessOrEqual(t, n, hi, "column %d value %d above range", col, n)
				require.Greater(t, n, prev, "column %d must ascend top to bottom", col)
				prev = n

				_, dup := seen[n]
				require.False(t, dup, "number %d appears twice", n)
				seen[n] = struct{}{}
			}
			require.GreaterOrEqual(t, count, 1, "column %d must hold at least 1 number", col)
			require.LessOrEqual(t, count, 3, "column %d must hold at most 3 numbers", col)
		}
	}
}

func TestTicketContains(t *testing.T) {
	tk := Ticket{
		{1, 0, 0, 34, 0, 51, 0, 75, 80},
		{2, 11, 0, 0, 42, 0, 65, 0, 81},
		{0, 12, 25, 0, 0, 56, 0, 76, 90},
	}

	for _, n := range tk.Numbers() {
		assert.True(t, tk.Contains(n), "ticket should contain %d", n)
	}
	assert.False(t, tk.Contains(3))
	assert.False(t, tk.Contains(89))
	assert.False(t, tk.Contains(0))
	assert.False(t, tk.Contains(91))
	assert.True(t, tk.Contains(90), "90 lives in the last column")
}

func TestTicketRow(t *testing.T) {
	tk := Ticket{
		{1, 0, 0, 14, 0, 0, 0, 61, 0},
		{0, 11, 22, 0, 45, 0, 0, 0, 82},
		{5, 0, 0, 0, 0, 55, 66, 77, 0},
	}
	assert.Equal(t, []int{1, 14, 61}, tk.Row(0))
	assert.Equal(t, []int{11, 22, 45, 82}, tk.Row(1))
	assert.Equal(t, []int{5, 55, 66, 77}, tk.Row(2))
}
