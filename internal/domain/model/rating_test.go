package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/nmgenxys/starcalc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStarRating(t *testing.T) {
	Convey("Given star ratings", t, func() {
		Convey("When rated", func() {
			r := model.StarRating(4)
			out, err := json.Marshal(r)

			So(r.IsRated(), ShouldBeTrue)
			So(r.String(), ShouldEqual, "4")
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, "4")
		})

		Convey("When not rated", func() {
			out, err := json.Marshal(model.NotRated)

			So(model.NotRated.IsRated(), ShouldBeFalse)
			So(model.NotRated.String(), ShouldEqual, "N/A")
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, `"N/A"`)
		})
	})
}

func TestAverage(t *testing.T) {
	Convey("Given averages", t, func() {
		Convey("When applicable", func() {
			a := model.NewAverage(3.5)
			v, ok := a.Value()

			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 3.5)
			So(a.String(), ShouldEqual, "3.50")
			So(a.Format(1), ShouldEqual, "3.5")
		})

		Convey("When not applicable", func() {
			a := model.NoAverage()
			out, _ := json.Marshal(a)

			So(a.IsApplicable(), ShouldBeFalse)
			So(a.String(), ShouldEqual, "N/A")
			So(string(out), ShouldEqual, `"N/A"`)
		})

		Convey("When subtracting", func() {
			d := model.NewAverage(3.67).Sub(model.NewAverage(3.33))
			v, _ := d.Value()
			So(v, ShouldEqual, 0.34)
			So(model.NewAverage(3).Sub(model.NoAverage()).IsApplicable(), ShouldBeFalse)
		})

		Convey("When round-tripping summary averages through JSON", func() {
			in := model.SummaryAverages{
				PartC:   model.NewAverage(4.25),
				PartD:   model.NoAverage(),
				Overall: model.NewAverage(4.25),
			}
			raw, err := json.Marshal(in)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"part_c":4.25,"part_d":"N/A","overall":4.25}`)

			var out model.SummaryAverages
			So(json.Unmarshal(raw, &out), ShouldBeNil)
			So(out, ShouldResemble, in)
		})
	})
}

func TestPercentChange(t *testing.T) {
	Convey("Given two proportions", t, func() {
		Convey("When both are numeric", func() {
			p := model.ChangeBetween(model.Numeric(0.80), model.Numeric(0.85))
			pts, ok := p.Points()

			So(ok, ShouldBeTrue)
			So(pts, ShouldEqual, 5)
			So(p.String(), ShouldEqual, "5%")
		})

		Convey("When the change is negative", func() {
			p := model.ChangeBetween(model.Numeric(0.9), model.Numeric(0.7))
			pts, _ := p.Points()
			So(pts, ShouldEqual, -20)
		})

		Convey("When either side is a marker", func() {
			p := model.ChangeBetween(model.NotApplicable(""), model.Numeric(0.7))
			out, _ := json.Marshal(p)

			So(p.String(), ShouldEqual, "N/A")
			So(string(out), ShouldEqual, `"N/A"`)
		})
	})
}

func TestRound(t *testing.T) {
	Convey("Given values to round", t, func() {
		So(model.Round(3.3333333, 2), ShouldEqual, 3.33)
		So(model.Round(3.6666666, 2), ShouldEqual, 3.67)
		So(model.Round(2.5, 0), ShouldEqual, 2)
		So(model.Round(4, 2), ShouldEqual, 4)
	})
}

func TestContractRef(t *testing.T) {
	Convey("Given a contract", t, func() {
		c := model.Contract{ID: "H1234", Name: "Acme Health", Measures: model.Measures{}}

		So(c.Ref(), ShouldResemble, model.ContractRef{ID: "H1234", Name: "Acme Health"})
	})
}
