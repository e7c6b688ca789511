package challenges

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepd/prepd/internal/testutil"
)

const studentGradesCSV = `Student ID,Student Name,Maths,Science,English
S1,Ann,A,B,C
S2,Ben,C,C,F
S3,Cal,A,X,F
`

func TestSolveGradePoints(t *testing.T) {
	path := writeFixture(t, "student_grades.csv", studentGradesCSV)

	got, err := SolveGradePoints(path, DefaultGradePoints(), memory.NewGoAllocator())
	require.NoError(t, err)
	defer got.Release()

	// Cal's unknown grade X scores as null and drops out of the counts
	want := testutil.MustTable(t, map[string]any{
		"student_id":   []string{"S1", "S2", "S3"},
		"student_name": []string{"Ann", "Ben", "Cal"},
		"total_points": []int64{120, 60, 50},
		"mean_points":  []float64{40, 20, 25},
		"num_subjects": []int64{3, 3, 2},
		"best_subject": []string{"Maths", "Maths", "Maths"},
		"class_rank":   []int64{1, 2, 3},
	}, []string{
		"student_id", "student_name", "total_points", "mean_points",
		"num_subjects", "best_subject", "class_rank",
	})
	defer want.Release()

	testutil.AssertTableEqual(t, want, got)
}

func TestSolveGradePointsTiedTotals(t *testing.T) {
	csv := `Student ID,Student Name,Maths,Science
S1,Ann,A,B
S2,Ben,B,A
`
	path := writeFixture(t, "student_grades.csv", csv)

	got, err := SolveGradePoints(path, DefaultGradePoints(), memory.NewGoAllocator())
	require.NoError(t, err)
	defer got.Release()

	rank, ok := got.Column("class_rank")
	require.True(t, ok)
	for i := 0; i < got.NumRows(); i++ {
		v, valid := rank.Value(i)
		require.True(t, valid)
		assert.Equal(t, int64(1), v)
	}

	best, ok := got.Column("best_subject")
	require.True(t, ok)
	first, _ := best.Value(0)
	second, _ := best.Value(1)
	assert.Equal(t, "Maths", first)
	assert.Equal(t, "Science", second)
}

func TestRunGradePointsUsesLookupFile(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(inputDir, "student_grades.csv"), []byte(studentGradesCSV), 0o600))
	require.NoError(t, os.WriteFile(
		filepath.Join(inputDir, "grade_points.yaml"),
		[]byte("A: \"100\"\nB: \"80\"\nC: \"60\"\nF: \"0\"\n"), 0o600))

	challenge, ok := Find("grade-points")
	require.True(t, ok)
	require.NoError(t, challenge.Run(inputDir, outputDir))

	content, err := os.ReadFile(filepath.Join(outputDir, "grade_points.ndjson"))
	require.NoError(t, err)
	assert.Contains(t, string(content), `"total_points":240`)
}

func TestChallengeRegistry(t *testing.T) {
	all := All()
	require.Len(t, all, 3)
	for _, c := range all {
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.Description)
		assert.NotNil(t, c.Run)
	}

	_, ok := Find("flight-details")
	assert.True(t, ok)
	_, ok = Find("unknown")
	assert.False(t, ok)
}
