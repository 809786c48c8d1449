package quality

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// PrintReport writes a short human readable view of r
func PrintReport(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Data quality summary\n")
	fmt.Fprintf(tw, "  rows before cleaning\t%d\n", r.RawRows)
	fmt.Fprintf(tw, "  rows after cleaning\t%d\n", r.CleanRows)
	fmt.Fprintf(tw, "  duplicate rows\t%d\t%d\n", r.Raw.DuplicateRows, r.Clean.DuplicateRows)
	fmt.Fprintf(tw, "  missing timestamps\t%d\t%d\n", r.Raw.MissingTimestamps, r.Clean.MissingTimestamps)
	fmt.Fprintf(tw, "  time gaps\t%d\t%d\n", r.Raw.TimeGaps, r.Clean.TimeGaps)
	fmt.Fprintf(tw, "  type mismatches\t%d\t%d\n", r.Raw.DtypeMismatch, r.Clean.DtypeMismatch)
	for _, rule := range r.Rules {
		fmt.Fprintf(tw, "  rule %s\t%d\n", rule.Check, rule.NumIssues)
	}
	return tw.Flush()
}
