package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/nmgenxys/starcalc/internal/config"
	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/report"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	c14 = "C14: Medication Reconciliation Post-Discharge"
	d08 = "D08: Medication Adherence for Diabetes Medications"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// fixture writes rule, contract and config files and returns the config path.
func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	partC := writeFile(t, dir, "part_c.json", `{"C14": {"thresholds": [0.5, 0.6, 0.7, 0.8, 0.9]}}`)
	partD := writeFile(t, dir, "part_d.json", `{"D08": {"thresholds": {
  "MA-PD": [0.5, 0.6, 0.7, 0.8, 0.9],
  "PDP": [0.6, 0.7, 0.8, 0.9, 0.95]}}}`)
	contracts := writeFile(t, dir, "contracts.json", `{
  "H1234": {"contract_name": "Acme Health", "measures": {"`+c14+`": 0.75, "`+d08+`": 0.88}},
  "H0001": {"contract_name": "Beta Care", "measures": {"`+c14+`": 0.95, "`+d08+`": 0.91}}
}`)
	return writeFile(t, dir, "starcalc.yaml", `
part_c_thresholds: `+partC+`
part_d_thresholds: `+partD+`
contract_scores: `+contracts+`
measures_of_interest:
  - "`+c14+`"
  - "`+d08+`"
workers: 2
`)
}

// execute runs the CLI and returns stdout.
func execute(args ...string) (string, error) {
	root := NewRootCommand("test")
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestParseOverrides(t *testing.T) {
	Convey("parseOverrides", t, func() {
		Convey("splits on the last equals sign", func() {
			got, err := parseOverrides([]string{"X1: a=b=0.5", c14 + "= 0.9"})
			So(err, ShouldBeNil)
			So(got, ShouldResemble, map[model.MeasureCode]float64{
				"X1: a=b":              0.5,
				model.MeasureCode(c14): 0.9,
			})
		})

		Convey("rejects pairs without a value", func() {
			_, err := parseOverrides([]string{"C14"})
			So(errors.Is(err, errUsage), ShouldBeTrue)
			_, err = parseOverrides([]string{"C14=high"})
			So(errors.Is(err, errUsage), ShouldBeTrue)
		})
	})
}

func TestCommands(t *testing.T) {
	Convey("Given a config with rules and two contracts", t, func() {
		cfg := fixture(t)

		Convey("rate classifies a value", func() {
			out, err := execute("rate", c14, "0.82", "--config", cfg, "-o", "json")
			So(err, ShouldBeNil)
			var got map[string]any
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got["star"], ShouldEqual, 4.0)
			So(got["plan_type"], ShouldEqual, "MA-PD")
		})

		Convey("summary reports a contract under the requested plan type", func() {
			out, err := execute("summary", "H1234", "--config", cfg, "-o", "json")
			So(err, ShouldBeNil)
			var got struct {
				Summary model.SummaryAverages `json:"summary"`
			}
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Summary.Overall.String(), ShouldEqual, "3.50")

			out, err = execute("summary", "H1234", "--config", cfg, "-o", "json", "--plan-type", "PDP")
			So(err, ShouldBeNil)
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Summary.PartD.String(), ShouldEqual, "3.00")
		})

		Convey("summary aggregates an ad-hoc file", func() {
			measures := writeFile(t, t.TempDir(), "m.json", `{"`+c14+`": 0.9, "`+d08+`": "N/A"}`)
			out, err := execute("summary", "--file", measures, "--config", cfg, "-o", "csv")
			So(err, ShouldBeNil)
			records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
			So(err, ShouldBeNil)
			So(records[1], ShouldResemble, []string{"5.00", "N/A", "5.00"})
		})

		Convey("summary needs exactly one input", func() {
			_, err := execute("summary", "--config", cfg)
			So(errors.Is(err, errUsage), ShouldBeTrue)
		})

		Convey("project applies overrides", func() {
			out, err := execute("project", "H1234", "--set", c14+"=0.95", "--config", cfg, "-o", "json")
			So(err, ShouldBeNil)
			var got struct {
				Projected model.SummaryAverages `json:"projected"`
				Delta     model.SummaryAverages `json:"delta"`
			}
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Projected.PartC.String(), ShouldEqual, "5.00")
			So(got.Delta.Overall.String(), ShouldEqual, "1.00")
		})

		Convey("project reports an unknown contract", func() {
			_, err := execute("project", "H9999", "--reset", "--config", cfg)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "contract not found")
		})

		Convey("contracts filters by name in a table", func() {
			out, err := execute("contracts", "-q", "beta", "--config", cfg)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "Beta Care")
			So(out, ShouldNotContainSubstring, "Acme Health")
		})

		Convey("leaderboard ranks the stronger contract first", func() {
			out, err := execute("leaderboard", "--config", cfg, "-o", "csv")
			So(err, ShouldBeNil)
			records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 3)
			So(records[1][:3], ShouldResemble, []string{"1", "H0001", "Beta Care"})
		})

		Convey("thresholds validates the part", func() {
			out, err := execute("thresholds", "--part", "d", "--config", cfg, "-o", "csv")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "D08,D,false,PDP,0.6 0.7 0.8 0.9 0.95")

			_, err = execute("thresholds", "--part", "E", "--config", cfg)
			So(errors.Is(err, errUsage), ShouldBeTrue)
		})

		Convey("simulate writes one CSV record per contract and measure", func() {
			out, err := execute("simulate", "--config", cfg, "-o", "csv")
			So(err, ShouldBeNil)
			records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 5)
			So(records[1][2], ShouldEqual, "H0001")
			So(records[3][2], ShouldEqual, "H1234")
			So(records[3][11], ShouldEqual, c14)
			So(records[3][13:], ShouldResemble, []string{"3", "80%", "4", "5%"})
		})

		Convey("simulate exports Parquet to a file", func() {
			path := filepath.Join(t.TempDir(), "sim.parquet")
			_, err := execute("simulate", "--config", cfg, "-o", "parquet", "--output-file", path)
			So(err, ShouldBeNil)

			f, err := os.Open(path)
			So(err, ShouldBeNil)
			defer func() { _ = f.Close() }()
			reader := parquet.NewGenericReader[report.SimulationRecord](f)
			defer func() { _ = reader.Close() }()
			So(reader.NumRows(), ShouldEqual, int64(4))
		})

		Convey("Parquet on stdout is refused", func() {
			_, err := execute("leaderboard", "--config", cfg, "-o", "parquet")
			So(errors.Is(err, report.ErrUnsupported), ShouldBeTrue)
		})

		Convey("an unknown output format fails before loading data", func() {
			_, err := execute("contracts", "--config", cfg, "-o", "xml")
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("A missing config file is a load error", t, func() {
		_, err := execute("contracts", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
		So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
	})
}
