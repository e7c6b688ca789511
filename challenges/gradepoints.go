package challenges

import (
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/prepd/prepd"
)

// DefaultGradePoints scores letter grades A through F.
func DefaultGradePoints() *prepd.Lookup {
	return prepd.NewLookup("grade_points", map[string]string{
		"A": "50",
		"B": "40",
		"C": "30",
		"D": "20",
		"E": "10",
		"F": "0",
	})
}

// SolveGradePoints melts the wide grade sheet into one row per student
// and subject, scores each grade through the lookup, and aggregates to
// a class ranking with each student's best subject.
func SolveGradePoints(gradesPath string, gradePoints *prepd.Lookup, mem memory.Allocator) (*prepd.Table, error) {
	raw, err := prepd.ReadCSVFile(gradesPath, prepd.DefaultCSVOptions(), mem)
	if err != nil {
		return nil, err
	}

	scored, err := prepd.Pipe(raw,
		prepd.Named("rename", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Rename(map[string]string{
				"Student ID":   "student_id",
				"Student Name": "student_name",
			})
		}),
		prepd.Named("melt_subjects", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Melt([]string{"student_id", "student_name"}, nil, "subject", "grade")
		}),
		prepd.Named("score_grades", scoreGrades(gradePoints)),
		prepd.Named("rank_subjects", func(in *prepd.Table) (*prepd.Table, error) {
			return in.WithColumns(
				prepd.Rank(prepd.Col("points"), true, prepd.RankMin).
					Over(prepd.Over("student_id")).
					As("subject_rank"),
			)
		}),
	)
	raw.Release()
	if err != nil {
		return nil, err
	}
	defer scored.Release()

	best, err := bestSubjects(scored)
	if err != nil {
		return nil, err
	}
	defer best.Release()

	summary, err := scored.GroupBy("student_id", "student_name").Agg(
		prepd.Sum(prepd.Col("points")).As("total_points"),
		prepd.Mean(prepd.Col("points")).As("mean_points"),
		prepd.Count(prepd.Col("points")).As("num_subjects"),
	)
	if err != nil {
		return nil, err
	}

	return pipeOwned(summary,
		prepd.Named("attach_best_subject", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Join(best, prepd.JoinOptions{
				Type:   prepd.LeftJoin,
				LeftOn: []string{"student_id"},
			})
		}),
		prepd.Named("rank_class", func(in *prepd.Table) (*prepd.Table, error) {
			return in.WithColumns(
				prepd.Rank(prepd.Col("total_points"), true, prepd.RankMin).
					Over(prepd.NewWindow()).
					As("class_rank"),
			)
		}),
		prepd.Named("order_class", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Sort(
				prepd.SortOrder{Column: "class_rank"},
				prepd.SortOrder{Column: "student_id"},
			)
		}),
	)
}

// scoreGrades maps letter grades to points. Grades outside the lookup
// fall through the cast and score as null.
func scoreGrades(gradePoints *prepd.Lookup) prepd.Stage {
	return func(in *prepd.Table) (*prepd.Table, error) {
		mapped, err := in.WithColumns(prepd.As(lookupExpr("grade", gradePoints), "points_raw"))
		if err != nil {
			return nil, err
		}
		defer mapped.Release()

		cast, err := mapped.WithColumns(prepd.Col("points_raw").CastToInt64().As("points"))
		if err != nil {
			return nil, err
		}
		defer cast.Release()

		return cast.Drop("points_raw")
	}
}

// bestSubjects keeps each student's top-ranked subject, first subject
// winning ties.
func bestSubjects(scored *prepd.Table) (*prepd.Table, error) {
	top, err := scored.Filter(prepd.Col("subject_rank").Eq(prepd.Lit(1)))
	if err != nil {
		return nil, err
	}

	return pipeOwned(top,
		prepd.Named("first_per_student", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Unique("student_id")
		}),
		prepd.Named("project_best", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Select("student_id", "subject")
		}),
		prepd.Named("rename_best", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Rename(map[string]string{"subject": "best_subject"})
		}),
	)
}

func runGradePoints(inputDir, outputDir string) error {
	mem := memory.NewGoAllocator()

	lookupPath := filepath.Join(inputDir, "grade_points.yaml")
	gradePoints := DefaultGradePoints()
	if loaded, err := prepd.LoadLookup("grade_points", lookupPath); err == nil {
		gradePoints = loaded
	}

	result, err := SolveGradePoints(filepath.Join(inputDir, "student_grades.csv"), gradePoints, mem)
	if err != nil {
		return err
	}
	defer result.Release()

	return prepd.WriteNDJSONFile(filepath.Join(outputDir, "grade_points.ndjson"), result)
}
