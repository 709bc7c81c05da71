package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ericfisherdev/scangate/internal/application"
	"github.com/ericfisherdev/scangate/internal/domain/model"
)

// printRunResult writes the scan outcome for pipeline logs. Structured
// detail goes to the logger; this is the human summary on stdout.
func printRunResult(w io.Writer, res *application.RunResult) {
	fmt.Fprintf(w, "Scan Id: %s\nScan Name: %s\n", res.Handle.ID, res.Handle.Name)
	if res.Results == nil {
		fmt.Fprintf(w, "Verdict: %s\n", res.Verdict)
		return
	}

	c := res.Results.Counts
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\tCritical\tHigh\tMedium\tLow\tInfo\n")
	fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\n", c.Total, c.Critical, c.High, c.Medium, c.Low, c.Info)
	_ = tw.Flush()

	fmt.Fprintf(w, "Results: %s\n", res.Results.ReportURL)
	if res.ReportPath != "" {
		fmt.Fprintf(w, "Report: %s\n", res.ReportPath)
	}
	if res.LogPath != "" {
		fmt.Fprintf(w, "Scan log: %s\n", res.LogPath)
	}
	fmt.Fprintf(w, "Verdict: %s\n", res.Verdict)
}

func printApplications(w io.Writer, apps []model.Application) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, app := range apps {
		fmt.Fprintf(tw, "%s\t%s\n", app.ID, app.Name)
	}
	return tw.Flush()
}

func printPresences(w io.Writer, presences []model.Presence) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS")
	for _, p := range presences {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Status)
	}
	return tw.Flush()
}

func printHistory(w io.Writer, records []model.ScanRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCAN ID\tNAME\tSTATUS\tTOTAL\tCRIT\tHIGH\tMED\tLOW\tVERDICT\tSTARTED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.ScanID, r.ScanName, r.Status,
			r.Counts.Total, r.Counts.Critical, r.Counts.High, r.Counts.Medium, r.Counts.Low,
			r.Verdict, r.StartedAt.Local().Format(time.DateTime),
		)
	}
	return tw.Flush()
}

func printStoredCredentials(w io.Writer, creds []model.StoredCredential) error {
	if len(creds) == 0 {
		_, err := fmt.Fprintln(w, "No stored credentials")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUPDATED")
	for _, c := range creds {
		fmt.Fprintf(tw, "%s\t%s\n", maskTokenName(c.Name), c.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// maskTokenName keeps the first four characters of the API key in a cached
// token name so build logs do not carry the whole key.
func maskTokenName(name string) string {
	prefix := model.TokenCredentialName("")
	key, ok := strings.CutPrefix(name, prefix)
	if !ok || len(key) <= 4 {
		return name
	}
	return prefix + key[:4] + strings.Repeat("*", len(key)-4)
}
