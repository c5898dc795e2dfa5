package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/moguls753/abtest/internal/experiment"
	"github.com/moguls753/abtest/internal/simulate"
	"github.com/moguls753/abtest/internal/statistics"
)

// SummaryCSV writes one row per variation
func SummaryCSV(w io.Writer, s *experiment.Summary) error {
	writer := csv.NewWriter(w)

	header := []string{"Variation", "Success", "Total", "Conversion"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if s != nil {
		for _, row := range s.Rows {
			record := []string{
				row.Name,
				strconv.Itoa(row.Success),
				strconv.Itoa(row.Total),
				formatFloat(row.Conversion),
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// ComparisonsCSV writes one row per treatment with every test result
func ComparisonsCSV(w io.Writer, comps []statistics.Comparison) error {
	writer := csv.NewWriter(w)

	header := []string{
		"Variation",
		"Z", "Z_PValue",
		"Superiority_Z", "Superiority_PValue",
		"Fisher_OddsRatio", "Fisher_PValue",
		"Posterior_Control_Alpha", "Posterior_Control_Beta",
		"Posterior_Treatment_Alpha", "Posterior_Treatment_Beta",
		"Prob_Better", "Prob_Better_By_Delta",
		"Significant", "Fisher_Significant", "Bayes_Confident",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, c := range comps {
		record := []string{
			c.Name,
			formatFloat(c.ZTest.Statistic), formatFloat(c.ZTest.PValue),
			formatFloat(c.Superiority.Statistic), formatFloat(c.Superiority.PValue),
			formatFloat(c.Fisher.Statistic), formatFloat(c.Fisher.PValue),
			formatFloat(c.PosteriorControl.Alpha), formatFloat(c.PosteriorControl.Beta),
			formatFloat(c.PosteriorTreatment.Alpha), formatFloat(c.PosteriorTreatment.Beta),
			formatFloat(c.ProbBetter), formatFloat(c.ProbBetterByDelta),
			strconv.FormatBool(c.Significant),
			strconv.FormatBool(c.FisherSignificant),
			strconv.FormatBool(c.BayesConfident),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReplayCSV writes the z-test trajectory of a replay, one row per look
func ReplayCSV(w io.Writer, points []simulate.Point) error {
	writer := csv.NewWriter(w)

	header := []string{"Visitors", "Control_Success", "Treatment_Success", "Z", "PValue"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range points {
		z, pvalue := "", ""
		if p.Err == nil {
			z, pvalue = formatFloat(p.Result.Statistic), formatFloat(p.Result.PValue)
		}
		record := []string{
			strconv.Itoa(p.Visitors),
			strconv.Itoa(p.Control.Success()),
			strconv.Itoa(p.Treatment.Success()),
			z,
			pvalue,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ToFile creates outputPath and writes to it with fn
func ToFile(outputPath string, fn func(io.Writer) error) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}

	if err := fn(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// formatFloat writes the shortest exact representation; NaN and Inf are spelled out
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
