// Package console implements the interactive terminal front ends: a catalog
// browser and the support chat.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tutorinminutes-backend/internal/catalog"
)

// ErrQuit is returned by Exec when the user asks to leave.
var ErrQuit = errors.New("quit")

const browseHelp = `Commands:
  search [term]                 free-text search on name and subjects (empty clears)
  filter key=value ...          subject, level, mode (all|online|offline), min, max, rating
  sort <key>                    recommended, highest-rated, price-low, price-high, nearest
  near <lat> <lng> | near off   set or clear your location
  reset                         clear search, filters and sort
  show                          print the current results
  help                          this text
  quit                          leave`

// Browser drives a catalog.Engine from text commands and prints each view.
type Browser struct {
	engine *catalog.Engine
	out    io.Writer
}

func NewBrowser(tutors []catalog.Tutor, out io.Writer) *Browser {
	return &Browser{engine: catalog.NewEngine(tutors), out: out}
}

func (b *Browser) Engine() *catalog.Engine { return b.engine }

// Run reads commands from in until EOF or quit.
func (b *Browser) Run(in io.Reader) error {
	fmt.Fprintf(b.out, "%d tutors loaded. Type 'help' for commands.\n", b.engine.View().Len())
	b.print(b.engine.View())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(b.out, "browse> ")
		if !scanner.Scan() {
			fmt.Fprintln(b.out)
			return scanner.Err()
		}
		if err := b.Exec(scanner.Text()); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(b.out, "error: %v\n", err)
		}
	}
}

// Exec runs a single command line.
func (b *Browser) Exec(line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "search":
		b.print(b.engine.SetSearchTerm(strings.Join(rest, " ")))
	case "filter":
		patch, err := parseFilterPatch(rest, b.engine.Query().Filters.PriceRange)
		if err != nil {
			return err
		}
		b.print(b.engine.SetFilters(patch))
	case "sort":
		if len(rest) != 1 {
			return errors.New("usage: sort <key>")
		}
		key, ok := catalog.ParseSortKey(rest[0])
		if !ok {
			return fmt.Errorf("unknown sort key %q", rest[0])
		}
		b.print(b.engine.SetSortKey(key))
	case "near":
		loc, err := parseLocation(rest)
		if err != nil {
			return err
		}
		b.print(b.engine.SetObserver(loc))
	case "reset":
		b.print(b.engine.Reset())
	case "show":
		b.print(b.engine.View())
	case "help":
		fmt.Fprintln(b.out, browseHelp)
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
	return nil
}

func (b *Browser) print(view catalog.View) {
	q := b.engine.Query()
	fmt.Fprintf(b.out, "%d tutors found (sort: %s)\n", view.Len(), q.Sort)
	for i, t := range view.Tutors {
		modes := make([]string, len(t.Modes))
		for j, m := range t.Modes {
			modes[j] = string(m)
		}
		line := fmt.Sprintf("%2d. %-20s %-32s %6.0f/hr  %.1f (%d reviews)  %s",
			i+1, t.Name, strings.Join(t.Subjects, ", "), t.PricePerHour, t.Rating, t.TotalReviews, strings.Join(modes, "/"))
		if d, ok := view.Distance(t.ID); ok {
			line += "  " + catalog.FormatDistance(d)
		}
		fmt.Fprintln(b.out, line)
	}
}

// parseFilterPatch builds a patch from key=value args. min and max adjust the
// current price range rather than replacing both ends.
func parseFilterPatch(args []string, current catalog.PriceRange) (catalog.FilterPatch, error) {
	var patch catalog.FilterPatch
	if len(args) == 0 {
		return patch, errors.New("usage: filter key=value ...")
	}

	var price *catalog.PriceRange
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return patch, fmt.Errorf("expected key=value, got %q", arg)
		}

		switch key = strings.ToLower(key); key {
		case "subject":
			patch.Subject = &value
		case "level":
			patch.Level = &value
		case "mode":
			mode := catalog.ParseMode(value)
			patch.Mode = &mode
		case "min", "max":
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return patch, fmt.Errorf("invalid %s price %q", key, value)
			}
			if price == nil {
				r := current
				price = &r
			}
			if key == "min" {
				price.Min = n
			} else {
				price.Max = n
			}
		case "rating":
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return patch, fmt.Errorf("invalid rating %q", value)
			}
			patch.MinRating = &n
		default:
			return patch, fmt.Errorf("unknown filter %q", key)
		}
	}
	patch.PriceRange = price
	return patch, nil
}

func parseLocation(args []string) (*catalog.Location, error) {
	if len(args) == 1 && strings.EqualFold(args[0], "off") {
		return nil, nil
	}
	if len(args) != 2 {
		return nil, errors.New("usage: near <lat> <lng> | near off")
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid latitude %q", args[0])
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("invalid longitude %q", args[1])
	}
	return &catalog.Location{Lat: lat, Lng: lng}, nil
}

// splitArgs splits on whitespace, keeping double-quoted runs together, so
// subject="Data Science" is one argument.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}
