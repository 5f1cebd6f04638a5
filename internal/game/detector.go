// internal/game/detector.go
package game

// Evaluate determines which not-yet-awarded categories a player's marked set
// now satisfies. It is a pure function with no side effects: invoked after
// every mark for every affected player, and again by the claim arbiter under
// its lock, so it must stay cheap.
//
// Early Five needs any five marks, the line categories need every non-zero
// cell of their row marked, and Full House needs all fifteen. Categories
// already awarded for the game are filtered out of the result: a player
// completing a pattern after the category was taken cannot win it.
func Evaluate(ticket Ticket, marked map[int]struct{}, awarded map[Category]struct{}) []Category {
	var out []Category

	qualifies := func(cat Category) bool {
		switch cat {
		case CategoryEarlyFive:
			return len(marked) >= 5
		case CategoryTopLine:
			return rowMarked(ticket, 0, marked)
		case CategoryMiddleLine:
			return rowMarked(ticket, 1, marked)
		case CategoryBottomLine:
			return rowMarked(ticket, 2, marked)
		case CategoryFullHouse:
			return len(marked) >= 15
		}
		return false
	}

	for _, cat := range Categories {
		if _, taken := awarded[cat]; taken {
			continue
		}
		if qualifies(cat) {
			out = append(out, cat)
		}
	}
	return out
}

func rowMarked(ticket Ticket, row int, marked map[int]struct{}) bool {
	nums := ticket.Row(row)
	if len(nums) == 0 {
		return false
	}
	for _, n := range nums {
		if _, ok := marked[n]; !ok {
			return false
		}
	}
	return true
}
