package scoring_test

import (
	"sync"
	"testing"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scenario"
	scoring "github.com/nmgenxys/starcalc/internal/domain/scoring"
	"github.com/nmgenxys/starcalc/internal/domain/thresholds"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	c01 = model.MeasureCode("C01: Breast Cancer Screening")
	c02 = model.MeasureCode("C02: Colorectal Cancer Screening")
	c14 = model.MeasureCode("C14: Medication Reconciliation Post-Discharge")
	c30 = model.MeasureCode("C30: Members Choosing to Leave the Plan")
	d08 = model.MeasureCode("D08: Medication Adherence for Diabetes Medications")
	d99 = model.MeasureCode("D99: Unrated Measure")
	z01 = model.MeasureCode("Z01: Odd")
)

var ascending = thresholds.Cutoffs{0.5, 0.6, 0.7, 0.8, 0.9}

func newEngine(opts ...scoring.Option) *scoring.Engine {
	repo := thresholds.New(
		map[string]thresholds.Rule{
			"C01": {Cutoffs: ascending},
			"C02": {Cutoffs: ascending},
			"C14": {Cutoffs: ascending},
			"C30": {Cutoffs: thresholds.Cutoffs{0.5, 0.4, 0.3, 0.2, 0.1}, Reverse: true},
		},
		map[string]thresholds.Rule{
			"D08": {PlanCutoffs: map[model.PlanType]thresholds.Cutoffs{
				model.PlanMAPD: ascending,
				model.PlanPDP:  {0.6, 0.7, 0.8, 0.9, 0.95},
			}},
		},
	)
	return scoring.NewEngine(repo, opts...)
}

func TestEngine_Classify(t *testing.T) {
	Convey("Given an engine", t, func() {
		e := newEngine()

		Convey("When the value falls between tiers of an ascending rule", func() {
			star := e.Classify(model.Numeric(0.75), c14, false, model.PlanMAPD)

			Convey("Then the highest cleared tier wins", func() {
				So(star, ShouldEqual, model.StarRating(3))
			})
		})

		Convey("When the value sits exactly on a boundary", func() {
			So(e.Classify(model.Numeric(0.9), c14, false, model.PlanMAPD), ShouldEqual, model.StarRating(5))
			So(e.Classify(model.Numeric(0.5), c14, false, model.PlanMAPD), ShouldEqual, model.StarRating(1))
		})

		Convey("When the rule is reversed", func() {
			star := e.Classify(model.Numeric(0.15), c30, false, model.PlanMAPD)

			Convey("Then lower values earn more stars", func() {
				So(star, ShouldEqual, model.StarRating(4))
				So(e.Classify(model.Numeric(0.05), c30, false, model.PlanMAPD), ShouldEqual, model.StarRating(5))
			})
		})

		Convey("When the value clears no tier", func() {
			Convey("Then the floor is one star, never not-rated", func() {
				So(e.Classify(model.Numeric(0.1), c14, false, model.PlanMAPD), ShouldEqual, model.MinStars)
				So(e.Classify(model.Numeric(0), c14, false, model.PlanMAPD), ShouldEqual, model.MinStars)
				So(e.Classify(model.Numeric(0.9), c30, false, model.PlanMAPD), ShouldEqual, model.MinStars)
			})
		})

		Convey("When the value is a marker", func() {
			So(e.Classify(model.NotApplicable("N/A"), c14, false, model.PlanMAPD), ShouldEqual, model.NotRated)
			So(e.Classify(model.NotApplicable(""), c14, false, model.PlanMAPD), ShouldEqual, model.NotRated)
		})

		Convey("When the base code has no rule", func() {
			So(e.Classify(model.Numeric(0.99), "C77: Unknown", false, model.PlanMAPD), ShouldEqual, model.NotRated)
			So(e.Classify(model.Numeric(0.99), c14, true, model.PlanMAPD), ShouldEqual, model.NotRated)
		})

		Convey("When rating Part D under each plan type", func() {
			So(e.Classify(model.Numeric(0.9), d08, true, model.PlanMAPD), ShouldEqual, model.StarRating(5))
			So(e.Classify(model.Numeric(0.9), d08, true, model.PlanPDP), ShouldEqual, model.StarRating(4))
		})

		Convey("When the plan type is empty", func() {
			pdp := newEngine(scoring.WithDefaultPlanType(model.PlanPDP))

			Convey("Then the engine default applies", func() {
				So(e.Classify(model.Numeric(0.9), d08, true, ""), ShouldEqual, model.StarRating(5))
				So(pdp.Classify(model.Numeric(0.9), d08, true, ""), ShouldEqual, model.StarRating(4))
				So(pdp.DefaultPlanType(), ShouldEqual, model.PlanPDP)
			})
		})

		Convey("When classifying twice", func() {
			a := e.Classify(model.Numeric(0.77), c14, false, model.PlanMAPD)
			b := e.Classify(model.Numeric(0.77), c14, false, model.PlanMAPD)
			So(a, ShouldEqual, b)
		})
	})
}

func TestEngine_Aggregate(t *testing.T) {
	Convey("Given an engine", t, func() {
		e := newEngine()

		Convey("When aggregating an empty mapping", func() {
			s := e.Aggregate(model.Measures{}, model.PlanMAPD)

			Convey("Then every average is not applicable", func() {
				So(s.PartC.IsApplicable(), ShouldBeFalse)
				So(s.PartD.IsApplicable(), ShouldBeFalse)
				So(s.Overall.IsApplicable(), ShouldBeFalse)
			})
		})

		Convey("When one measure of each part earns five stars", func() {
			s := e.Aggregate(model.Measures{
				c14: model.Numeric(0.9),
				d08: model.Numeric(0.9),
			}, model.PlanMAPD)

			Convey("Then all averages are 5.0", func() {
				So(s.PartC, ShouldResemble, model.NewAverage(5))
				So(s.PartD, ShouldResemble, model.NewAverage(5))
				So(s.Overall, ShouldResemble, model.NewAverage(5))
			})
		})

		Convey("When the parts have unequal sizes and means", func() {
			s := e.Aggregate(model.Measures{
				c01: model.Numeric(0.95),
				c02: model.Numeric(0.95),
				c14: model.Numeric(0.95),
				d08: model.Numeric(0.1),
			}, model.PlanMAPD)

			Convey("Then overall is the mean of every star, not of the part averages", func() {
				pc, _ := s.PartC.Value()
				pd, _ := s.PartD.Value()
				overall, _ := s.Overall.Value()
				So(pc, ShouldEqual, 5)
				So(pd, ShouldEqual, 1)
				So(overall, ShouldEqual, 4)
				So(overall, ShouldNotEqual, (pc+pd)/2)
			})
		})

		Convey("When averages are not whole numbers", func() {
			s := e.Aggregate(model.Measures{
				c01: model.Numeric(0.9),
				c02: model.Numeric(0.8),
				c14: model.Numeric(0.8),
			}, model.PlanMAPD)

			Convey("Then they are rounded to two places", func() {
				v, _ := s.PartC.Value()
				So(v, ShouldEqual, 4.33)
				So(s.PartD.IsApplicable(), ShouldBeFalse)
				So(s.Overall, ShouldResemble, s.PartC)
			})
		})

		Convey("When markers and unknown codes are present", func() {
			s := e.Aggregate(model.Measures{
				c14: model.Numeric(0.7),
				c01: model.NotApplicable("Plan too new to be measured"),
				d99: model.Numeric(0.9),
				z01: model.Numeric(0.9),
			}, model.PlanMAPD)

			Convey("Then they are skipped silently", func() {
				So(s.PartC, ShouldResemble, model.NewAverage(3))
				So(s.PartD.IsApplicable(), ShouldBeFalse)
				So(s.Overall, ShouldResemble, model.NewAverage(3))
			})
		})

		Convey("When the Part D rule lacks the plan type", func() {
			stars := e.Collect(model.Measures{d08: model.Numeric(0.9)}, "HMO")
			So(stars.PartD, ShouldBeEmpty)
		})

		Convey("When aggregating twice", func() {
			m := model.Measures{c14: model.Numeric(0.66), d08: model.Numeric(0.81)}
			So(e.Aggregate(m, model.PlanPDP), ShouldResemble, e.Aggregate(m, model.PlanPDP))
		})

		Convey("When aggregating concurrently", func() {
			m := model.Measures{c14: model.Numeric(0.66), d08: model.Numeric(0.81)}
			want := e.Aggregate(m, model.PlanMAPD)
			got := make([]model.SummaryAverages, 16)
			var wg sync.WaitGroup
			for i := range got {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					got[i] = e.Aggregate(m, model.PlanMAPD)
				}(i)
			}
			wg.Wait()
			for _, g := range got {
				So(g, ShouldResemble, want)
			}
		})
	})
}

func TestEngine_Project(t *testing.T) {
	Convey("Given a baseline contract", t, func() {
		e := newEngine()
		base := model.Measures{
			c14: model.Numeric(0.72),
			c01: model.Numeric(0.95),
			d08: model.Numeric(0.83),
		}

		Convey("When projecting an uplift", func() {
			o := scenario.Overrides{c14: 0.92, d08: 0.88}
			p := e.Project(base, o, "")

			Convey("Then both summaries are computed from the same rules", func() {
				So(p.PlanType, ShouldEqual, model.PlanMAPD)
				So(p.Baseline.PartC, ShouldResemble, model.NewAverage(4))
				So(p.Projected.PartC, ShouldResemble, model.NewAverage(5))
				So(p.Baseline.PartD, ShouldResemble, model.NewAverage(4))
				So(p.Projected.PartD, ShouldResemble, model.NewAverage(4))
				So(p.Delta.PartC, ShouldResemble, model.NewAverage(1))
			})

			Convey("Then rows describe each overridden measure", func() {
				So(p.Rows, ShouldHaveLength, 2)
				So(p.Rows[0].Measure, ShouldEqual, c14)
				So(p.Rows[0].BaselineStar, ShouldEqual, model.StarRating(3))
				So(p.Rows[0].ProjectedStar, ShouldEqual, model.StarRating(5))
				pts, ok := p.Rows[0].DeltaPct.Points()
				So(ok, ShouldBeTrue)
				So(pts, ShouldEqual, 20)
				So(p.Rows[1].Part, ShouldEqual, model.PartD)
			})

			Convey("Then the baseline is untouched", func() {
				f, _ := base.Get(c14).Float()
				So(f, ShouldEqual, 0.72)
			})
		})

		Convey("When there are no overrides", func() {
			p := e.Project(base, scenario.Overrides{}, model.PlanMAPD)

			Convey("Then projected equals baseline", func() {
				So(p.Projected, ShouldResemble, p.Baseline)
				So(p.Rows, ShouldBeEmpty)
			})
		})

		Convey("When detail rows include a measure missing from the baseline", func() {
			p := e.ProjectCodes(base, scenario.Overrides{c02: 0.7}, []model.MeasureCode{c02, c30}, model.PlanMAPD)

			Convey("Then the baseline side is not applicable", func() {
				So(p.Rows[0].BaselineStar, ShouldEqual, model.NotRated)
				So(p.Rows[0].ProjectedStar, ShouldEqual, model.StarRating(3))
				So(p.Rows[0].DeltaPct.String(), ShouldEqual, "N/A")
				So(p.Rows[1].Projected.IsNumeric(), ShouldBeFalse)
				So(p.Projected.PartC.IsApplicable(), ShouldBeTrue)
			})
		})
	})
}
