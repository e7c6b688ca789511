package challenges

import (
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/prepd/prepd"
)

// flightDetailsPattern splits the raw detail string
// "date//number//from-to//class//price" into its six fields.
const flightDetailsPattern = `^(.+)//(.+)//(.+)-(.+)//(.+)//(.+)$`

// FixedSeatClasses corrects the seat classes that the booking system
// assigned in reverse order.
func FixedSeatClasses() *prepd.Lookup {
	return prepd.NewLookup("fixed_seat_classes", map[string]string{
		"Economy":         "First Class",
		"Premium Economy": "Business Class",
		"Business Class":  "Premium Economy",
		"First Class":     "Economy",
	})
}

// SolveFlightDetails reads the raw passenger CSV and returns the typed
// flight detail table, keyed by flight_detail_id. A non-nil
// seatClassFix lookup remaps the seat_class column after the split.
func SolveFlightDetails(detailsPath string, seatClassFix *prepd.Lookup, mem memory.Allocator) (*prepd.Table, error) {
	raw, err := prepd.ReadCSVFile(detailsPath, prepd.DefaultCSVOptions(), mem)
	if err != nil {
		return nil, err
	}
	defer raw.Release()

	stages := []prepd.Stage{
		prepd.Named("rename", renameFlightColumns),
		prepd.Named("split_details", splitFlightDetails),
		prepd.Named("clean", cleanFlightDetails),
	}
	if seatClassFix != nil {
		stages = append(stages, prepd.Named("fix_seat_class", fixSeatClass(seatClassFix)))
	}
	stages = append(stages, prepd.Named("finalize", finalizeFlightDetails))

	return prepd.Pipe(raw, stages...)
}

func renameFlightColumns(in *prepd.Table) (*prepd.Table, error) {
	return in.Rename(map[string]string{
		"Flight Details": "flight_details",
		"Flow Card?":     "has_flow_card",
		"Bags Checked":   "number_of_bags_checked",
		"Meal Type":      "meal_type",
	})
}

func splitFlightDetails(in *prepd.Table) (*prepd.Table, error) {
	details := prepd.Col("flight_details")
	return in.WithColumns(
		details.Extract(flightDetailsPattern, 1).As("flew_on"),
		details.Extract(flightDetailsPattern, 2).As("flight_number"),
		details.Extract(flightDetailsPattern, 3).As("from"),
		details.Extract(flightDetailsPattern, 4).As("to"),
		details.Extract(flightDetailsPattern, 5).As("seat_class"),
		details.Extract(flightDetailsPattern, 6).As("price"),
	)
}

func cleanFlightDetails(in *prepd.Table) (*prepd.Table, error) {
	return in.WithColumns(
		prepd.Col("flew_on").ToDate("2006-01-02").As("flew_on"),
		prepd.Col("price").CastToFloat64().As("price"),
		prepd.Col("has_flow_card").CastToBool().As("has_flow_card"),
	)
}

func fixSeatClass(fix *prepd.Lookup) prepd.Stage {
	return func(in *prepd.Table) (*prepd.Table, error) {
		return in.WithColumns(prepd.As(lookupExpr("seat_class", fix), "seat_class"))
	}
}

func finalizeFlightDetails(in *prepd.Table) (*prepd.Table, error) {
	rendered, err := in.WithColumns(
		prepd.Col("flew_on").FormatDate("2006-01-02").As("flew_on"),
	)
	if err != nil {
		return nil, err
	}
	defer rendered.Release()

	selected, err := rendered.Select(
		"flew_on", "flight_number", "from", "to", "seat_class", "price",
		"has_flow_card", "number_of_bags_checked", "meal_type",
	)
	if err != nil {
		return nil, err
	}
	defer selected.Release()

	return selected.WithRowIndex("flight_detail_id", 1)
}

func runFlightDetails(inputDir, outputDir string) error {
	mem := memory.NewGoAllocator()

	details, err := SolveFlightDetails(filepath.Join(inputDir, "flight_details.csv"), nil, mem)
	if err != nil {
		return err
	}
	defer details.Release()
	if err := prepd.WriteNDJSONFile(filepath.Join(outputDir, "passenger_flight_details.ndjson"), details); err != nil {
		return err
	}

	fixed, err := SolveFlightDetails(filepath.Join(inputDir, "flight_details.csv"), FixedSeatClasses(), mem)
	if err != nil {
		return err
	}
	defer fixed.Release()
	return prepd.WriteNDJSONFile(filepath.Join(outputDir, "fixed_flight_details.ndjson"), fixed)
}
