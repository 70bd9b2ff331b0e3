// internal/report/charts.go
package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// WriteCharts renders the report as an HTML page with two charts: a pie of
// engagement share per platform and a bar of the individual metric totals.
func (r *CampaignReport) WriteCharts(w io.Writer) error {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Engagement share by platform"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)

	var pieItems []opts.PieData
	for _, s := range r.Platforms {
		pieItems = append(pieItems, opts.PieData{
			Name:  s.Platform.DisplayName(),
			Value: s.Engagements(),
		})
	}
	pie.AddSeries("Engagements", pieItems)

	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Metric totals by platform"}))

	var barX []string
	var likes, comments, shares, favorites []opts.BarData
	for _, s := range r.Platforms {
		barX = append(barX, s.Platform.DisplayName())
		likes = append(likes, opts.BarData{Value: s.Likes})
		comments = append(comments, opts.BarData{Value: s.Comments})
		shares = append(shares, opts.BarData{Value: s.Shares})
		favorites = append(favorites, opts.BarData{Value: s.Favorite})
	}
	bar.SetXAxis(barX).
		AddSeries("Likes", likes).
		AddSeries("Comments", comments).
		AddSeries("Shares", shares).
		AddSeries("Favorites", favorites)

	if err := pie.Render(w); err != nil {
		return err
	}
	return bar.Render(w)
}
