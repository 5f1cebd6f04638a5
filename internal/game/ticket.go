// internal/game/ticket.go
package game

import (
	"math/rand"
	"sort"
)

// Ticket is an immutable 3x9 Tambola grid. Zero cells are blanks; the 15
// non-zero cells are the player's holdable numbers. Column c holds numbers
// from that column's decade (col 0 = 1..9, col 8 = 80..90), ascending from
// top row to bottom row.
type Ticket [3][9]int

// Numbers returns all 15 non-zero cell values.
func (t Ticket) Numbers() []int {
	nums := make([]int, 0, 15)
	for r := 0; r < 3; r++ {
		for c := 0; c < 9; c++ {
			if t[r][c] != 0 {
				nums = append(nums, t[r][c])
			}
		}
	}
	return nums
}

// Contains reports whether n is one of the ticket's non-zero cells.
func (t Ticket) Contains(n int) bool {
	if n < 1 || n > 90 {
		return false
	}
	col := columnFor(n)
	for r := 0; r < 3; r++ {
		if t[r][col] == n {
			return true
		}
	}
	return false
}

// Row returns the non-zero values of row r (0 = top, 2 = bottom).
func (t Ticket) Row(r int) []int {
	nums := make([]int, 0, 5)
	for c := 0; c < 9; c++ {
		if t[r][c] != 0 {
			nums = append(nums, t[r][c])
		}
	}
	return nums
}

// columnFor maps a number 1..90 to its ticket column.
func columnFor(n int) int {
	if n == 90 {
		return 8
	}
	return n / 10
}

// columnRange returns the inclusive number range for column c.
func columnRange(c int) (lo, hi int) {
	switch c {
	case 0:
		return 1, 9
	case 8:
		return 80, 90
	default:
		return c * 10, c*10 + 9
	}
}

// generateTicket builds a random ticket: 15 numbers, 5 per row, 1 to 3 per
// column, ascending within each column.
func generateTicket(r *rand.Rand) Ticket {
	// Every column gets at least one number; distribute the remaining six
	// slots over columns still below three.
	counts := [9]int{1, 1, 1, 1, 1, 1, 1, 1, 1}
	for extra := 6; extra > 0; {
		c := r.Intn(9)
		if counts[c] < 3 {
			counts[c]++
			extra--
		}
	}

	// Place column counts into rows so every row ends up with exactly five
	// numbers. Processing the fullest columns first and always assigning to
	// the rows with the most remaining capacity keeps the row sums feasible.
	order := make([]int, 9)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	rowCap := [3]int{5, 5, 5}
	var occupied [3][9]bool
	for _, c := range order {
		rows := []int{0, 1, 2}
		r.Shuffle(3, func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		sort.SliceStable(rows, func(i, j int) bool { return rowCap[rows[i]] > rowCap[rows[j]] })
		for i := 0; i < counts[c]; i++ {
			occupied[rows[i]][c] = true
			rowCap[rows[i]]--
		}
	}

	// Draw the numbers for each column and write them into the occupied
	// cells in ascending order, top to bottom.
	var t Ticket
	for c := 0; c < 9; c++ {
		lo, hi := columnRange(c)
		pool := make([]int, 0, hi-lo+1)
		for n := lo; n <= hi; n++ {
			pool = append(pool, n)
		}
		r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		picked := pool[:counts[c]]
		sort.Ints(picked)

		i := 0
		for row := 0; row < 3; row++ {
			if occupied[row][c] {
				t[row][c] = picked[i]
				i++
			}
		}
	}
	return t
}
