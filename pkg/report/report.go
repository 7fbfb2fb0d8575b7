// Package report serializes batch run outcomes: a JSON processing
// report and a CSV metrics table suitable for spreadsheet analysis.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"multinoise/internal/models"
)

// jobEntry is the JSON shape of one job outcome. Infinite PSNR/SNR
// cannot be represented in JSON numbers, so identical images carry the
// string "identical" in the psnr/snr fields instead.
type jobEntry struct {
	Image      string      `json:"image"`
	Model      string      `json:"model"`
	Level      int         `json:"level"`
	Parameter  float64     `json:"parameter"`
	OutputPath string      `json:"output_path"`
	DurationMS int64       `json:"duration_ms"`
	MSE        *float64    `json:"mse,omitempty"`
	PSNR       interface{} `json:"psnr,omitempty"`
	SSIM       *float64    `json:"ssim,omitempty"`
	SNR        interface{} `json:"snr,omitempty"`
	Tier       string      `json:"tier,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type reportDoc struct {
	Inputs    int        `json:"inputs"`
	Jobs      int        `json:"jobs"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Results   []jobEntry `json:"results"`
}

// WriteJSON writes the full processing report.
func WriteJSON(rep *models.Report, path string) error {
	doc := reportDoc{
		Inputs:    rep.Inputs,
		Jobs:      len(rep.Results),
		Succeeded: rep.Succeeded,
		Failed:    rep.Failed,
		Results:   make([]jobEntry, 0, len(rep.Results)),
	}
	for _, res := range rep.Results {
		e := jobEntry{
			Image:      res.Job.ImageName,
			Model:      res.Job.Model,
			Level:      res.Job.Level,
			Parameter:  res.Parameter,
			OutputPath: res.Job.OutputPath,
			DurationMS: res.DurationMS,
		}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		if m := res.Metrics; m != nil {
			mse, ssim := m.MSE, m.SSIM
			e.MSE = &mse
			e.SSIM = &ssim
			e.PSNR = jsonMetric(m.PSNR)
			e.SNR = jsonMetric(m.SNR)
			e.Tier = m.Tier
		}
		doc.Results = append(doc.Results, e)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}

// jsonMetric converts a dB metric to its JSON representation; +Inf
// becomes the string "identical".
func jsonMetric(v float64) interface{} {
	if math.IsInf(v, 1) {
		return "identical"
	}
	return v
}

// WriteCSV writes the per-job metrics table. Failed jobs are skipped;
// the JSON report carries their errors.
func WriteCSV(rep *models.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating metrics csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"image", "model", "level", "parameter", "mse", "psnr", "ssim", "snr", "tier"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, res := range rep.Results {
		m := res.Metrics
		if res.Err != nil || m == nil {
			continue
		}
		row := []string{
			res.Job.ImageName,
			res.Job.Model,
			strconv.Itoa(res.Job.Level),
			formatFloat(res.Parameter),
			formatFloat(m.MSE),
			csvMetric(m.PSNR),
			formatFloat(m.SSIM),
			csvMetric(m.SNR),
			m.Tier,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// csvMetric formats a dB value; +Inf becomes "inf".
func csvMetric(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return formatFloat(v)
}
