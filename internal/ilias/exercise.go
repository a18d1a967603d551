package ilias

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ilias-uploader/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const report_exercise_parse = "exercise.parse"

type Exercise struct {
	Name        string
	Description string
	Assignments []*Assignment
}

// ParseExercise reads an exercise from its root page.
func ParseExercise(sel *goquery.Selection, c *Client) (Exercise, error) {
	name := htmlutil.Text(sel.FindMatcher(c.sel.pageTitle))
	if name == "" {
		return Exercise{}, missing("", ".il-page-content-header")
	}

	exercise := Exercise{
		Name:        name,
		Description: htmlutil.Text(sel.FindMatcher(c.sel.pageDescription)),
	}

	var err error
	sel.FindMatcher(c.sel.assignment).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var assignment *Assignment
		assignment, err = ParseAssignment(s, c)
		if err != nil {
			err = fmt.Errorf("assignment %d: %w", i+1, err)
			return false
		}
		exercise.Assignments = append(exercise.Assignments, assignment)
		return true
	})
	if err != nil {
		return Exercise{}, err
	}
	return exercise, nil
}

// Exercise fetches and parses the exercise with the given object id.
func (c *Client) Exercise(ctx context.Context, id string) (Exercise, error) {
	doc, err := c.Fetch(ctx, c.ExerciseQuerypath(id))
	if err != nil {
		return Exercise{}, err
	}
	exercise, err := ParseExercise(doc.Selection, c)
	if err != nil {
		err = withPage(err, doc)
		c.tel.ReportBroken(report_exercise_parse, err, id)
		return Exercise{}, fmt.Errorf("exercise %s: %w", id, err)
	}
	return exercise, nil
}

// ActiveAssignments returns the assignments whose deadline is after now.
func (e Exercise) ActiveAssignments(now time.Time) []*Assignment {
	var active []*Assignment
	for _, a := range e.Assignments {
		if a.IsActive(now) {
			active = append(active, a)
		}
	}
	return active
}

// withPage fills in the page of a MissingElementError raised by a parser
// that only saw a fragment of doc.
func withPage(err error, doc *goquery.Document) error {
	var missingErr *MissingElementError
	if errors.As(err, &missingErr) && missingErr.Page == "" && doc.Url != nil {
		missingErr.Page = doc.Url.String()
	}
	return err
}
