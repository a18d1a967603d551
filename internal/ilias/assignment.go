package ilias

import (
	"context"
	"fmt"
	"time"

	"ilias-uploader/lib/htmlutil"
	"ilias-uploader/lib/querypath"

	"github.com/PuerkitoBio/goquery"
)

// labels of the info screen sections, the portal renders either the german
// or the english variant depending on the account language
var (
	instructionsLabels = []string{"Arbeitsanweisung", "Work Instructions"}
	scheduleLabels     = []string{"Terminplan", "Schedule"}
	attachmentsLabels  = []string{"Dateien", "Files"}
	submissionLabels   = []string{"Ihre Einreichung", "Your Submission"}

	deadlineLabels = []string{"Abgabetermin", "Deadline", "Ende der Bearbeitungszeit", "Edit Until"}
)

type submissionState int

const (
	// there is no submission page, nothing was handed in yet
	submissionMissing submissionState = iota
	submissionUnresolved
	submissionResolved
)

// submissionCell moves from unresolved to resolved exactly once.
type submissionCell struct {
	state     submissionState
	querypath string
	resolved  *AssignmentSubmission
}

type Assignment struct {
	Name         string
	Instructions string
	Deadline     time.Time
	Attachments  []File

	submission submissionCell
}

// ParseAssignment reads one assignment block of an exercise page.
func ParseAssignment(sel *goquery.Selection, c *Client) (*Assignment, error) {
	name := htmlutil.Text(sel.FindMatcher(c.sel.assignmentName))
	if name == "" {
		return nil, missing("", ".ilAssignmentHeader")
	}
	a := &Assignment{Name: name}

	sections := map[string]*goquery.Selection{}
	sel.FindMatcher(c.sel.infoSection).Each(func(_ int, s *goquery.Selection) {
		header := htmlutil.Text(s.FindMatcher(c.sel.infoSectionHeader))
		if _, seen := sections[header]; !seen {
			sections[header] = s
		}
	})
	section := func(labels []string) *goquery.Selection {
		for _, l := range labels {
			if s, ok := sections[l]; ok {
				return s
			}
		}
		return nil
	}

	instructions := section(instructionsLabels)
	if instructions == nil {
		return nil, missing("", fmt.Sprintf("%s %q section", name, instructionsLabels[1]))
	}
	value := instructions.FindMatcher(c.sel.infoValue).First()
	if value.Length() == 0 {
		return nil, missing("", fmt.Sprintf("%s instructions .il_InfoScreenPropertyValue", name))
	}
	a.Instructions = htmlutil.Text(value)

	schedule := section(scheduleLabels)
	if schedule == nil {
		return nil, missing("", fmt.Sprintf("%s %q section", name, scheduleLabels[1]))
	}
	deadlineText := c.deadlineText(schedule)
	if deadlineText == "" {
		return nil, missing("", fmt.Sprintf("%s deadline .il_InfoScreenPropertyValue", name))
	}
	deadline, err := ParseDate(deadlineText, c.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%s deadline: %w", name, err)
	}
	a.Deadline = deadline

	if attachments := section(attachmentsLabels); attachments != nil {
		a.Attachments, err = c.parseAttachments(attachments)
		if err != nil {
			return nil, fmt.Errorf("%s attachments: %w", name, err)
		}
	}

	if submission := section(submissionLabels); submission != nil {
		href, ok := submission.FindMatcher(c.sel.anchor).First().Attr("href")
		if ok {
			qp, err := querypath.FromLink(href)
			if err != nil {
				return nil, fmt.Errorf("%w: %s submission link: %w", ErrParse, name, err)
			}
			a.submission = submissionCell{state: submissionUnresolved, querypath: qp}
		}
	}

	return a, nil
}

// deadlineText prefers the property labelled as deadline, schedules that
// only show a single date have no label to match.
func (c *Client) deadlineText(schedule *goquery.Selection) string {
	text := ""
	schedule.FindMatcher(c.sel.infoRow).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		label := htmlutil.Text(row.FindMatcher(c.sel.infoLabel))
		for _, l := range deadlineLabels {
			if label == l {
				text = htmlutil.Text(row.FindMatcher(c.sel.infoValue))
				return false
			}
		}
		return true
	})
	if text != "" {
		return text
	}
	return htmlutil.Text(schedule.FindMatcher(c.sel.infoValue).First())
}

func (c *Client) parseAttachments(section *goquery.Selection) ([]File, error) {
	var files []File
	var err error
	section.FindMatcher(c.sel.infoRow).EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Children()
		name := htmlutil.Text(cells.Eq(0))
		if name == "" {
			err = missing("", fmt.Sprintf("attachment %d name", i+1))
			return false
		}
		href, ok := cells.Eq(1).Children().First().Attr("href")
		if !ok {
			err = missing("", fmt.Sprintf("attachment %q download link", name))
			return false
		}
		var qp string
		qp, err = querypath.FromLink(href)
		if err != nil {
			err = fmt.Errorf("%w: attachment %q: %w", ErrParse, name, err)
			return false
		}
		files = append(files, File{Name: name, DownloadQuerypath: qp})
		return true
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// IsActive reports whether the deadline lies strictly after now.
func (a *Assignment) IsActive(now time.Time) bool {
	return a.Deadline.After(now)
}

// HasSubmission reports whether the assignment links to a submission page.
func (a *Assignment) HasSubmission() bool {
	return a.submission.state != submissionMissing
}

// Submission resolves the submission page on first use, later calls return
// the same value without any requests.
func (a *Assignment) Submission(ctx context.Context, c *Client) (*AssignmentSubmission, error) {
	switch a.submission.state {
	case submissionMissing:
		return nil, fmt.Errorf("%s: %w", a.Name, ErrNoSubmission)
	case submissionResolved:
		return a.submission.resolved, nil
	}

	submission, err := c.AssignmentSubmission(ctx, a.submission.querypath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name, err)
	}
	a.submission = submissionCell{
		state:     submissionResolved,
		querypath: a.submission.querypath,
		resolved:  submission,
	}
	return submission, nil
}
