package ilias

import (
	"context"
	"strings"
	"testing"
	"time"

	"ilias-uploader/internal/ilias/iliastest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestParseExercise(t *testing.T) {
	client, _ := newTestClient(t, ClientOptions{})
	doc := parseHTML(t, fixture(t, "exercise.html"))

	exercise, err := ParseExercise(doc.Selection, client)
	require.NoError(t, err)

	expected := Exercise{
		Name:        "Übungen Softwaretechnik",
		Description: "Abgabe der Übungsblätter",
		Assignments: []*Assignment{
			{
				Name:         "Übungsblatt 1",
				Instructions: "Bearbeiten Sie alle Aufgaben.",
				Deadline:     time.Date(2024, time.July, 17, 12, 0, 0, 0, time.UTC),
				Attachments: []File{{
					Name:              "blatt1.pdf",
					DownloadQuerypath: "ilias.php?ref_id=100&file=YmxhdHQx&cmd=downloadFile&baseClass=ilexercisehandlergui",
				}},
				submission: submissionCell{
					state:     submissionUnresolved,
					querypath: "ilias.php?ref_id=100&ass_id=1&cmd=submissionScreen&baseClass=ilexercisehandlergui",
				},
			},
			{
				Name:         "Sheet 0",
				Instructions: "Warm up.",
				Deadline:     time.Date(2024, time.April, 5, 12, 0, 0, 0, time.UTC),
			},
		},
	}

	diff := cmp.Diff(expected, exercise, cmp.AllowUnexported(Assignment{}, submissionCell{}), cmpopts.EquateEmpty())
	require.Empty(t, diff)

	active := exercise.ActiveAssignments(testNow)
	require.Len(t, active, 1)
	require.Equal(t, "Übungsblatt 1", active[0].Name)
	require.True(t, exercise.Assignments[0].HasSubmission())
	require.False(t, exercise.Assignments[1].HasSubmission())
}

func TestParseExerciseMissingElements(t *testing.T) {
	client, _ := newTestClient(t, ClientOptions{})
	page := fixture(t, "exercise.html")

	table := []struct {
		name    string
		replace [2]string
	}{
		{name: "title", replace: [2]string{`class="il-page-content-header"`, `class="header"`}},
		{name: "assignment name", replace: [2]string{`class="ilAssignmentHeader">Sheet 0`, `class="header">Sheet 0`}},
		{name: "instructions", replace: [2]string{"Arbeitsanweisung", "Hinweise"}},
		{name: "schedule", replace: [2]string{">Schedule<", ">Dates<"}},
	}

	for _, row := range table {
		doc := parseHTML(t, strings.Replace(page, row.replace[0], row.replace[1], 1))
		_, err := ParseExercise(doc.Selection, client)
		require.ErrorIs(t, err, ErrParse, row.name)

		var missingErr *MissingElementError
		require.ErrorAs(t, err, &missingErr, row.name)
	}
}

func TestParseExerciseInvalidDeadline(t *testing.T) {
	client, _ := newTestClient(t, ClientOptions{})
	page := strings.Replace(fixture(t, "exercise.html"), "17. Jul 2024, 12:00", "17. Juli 2024, 12:00", 1)

	_, err := ParseExercise(parseHTML(t, page).Selection, client)
	require.ErrorIs(t, err, ErrDateParse)
}

func TestClientExercise(t *testing.T) {
	portal := iliastest.NewPortal(t)
	portal.HandleHTML("goto.php?target=exc_100&client_id=produktiv", fixture(t, "exercise.html"))
	portal.HandleHTML("goto.php?target=exc_101&client_id=produktiv", "<html><body>Kein Zugriff</body></html>")

	client, tel := newTestClient(t, ClientOptions{BaseUrl: portal.URL()})

	exercise, err := client.Exercise(context.Background(), "100")
	require.NoError(t, err)
	require.Len(t, exercise.Assignments, 2)

	_, err = client.Exercise(context.Background(), "101")
	var missingErr *MissingElementError
	require.ErrorAs(t, err, &missingErr)
	require.Contains(t, missingErr.Page, "target=exc_101")
	require.True(t, tel.Has("broken", report_exercise_parse))
}
