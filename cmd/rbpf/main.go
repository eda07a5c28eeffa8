// Command rbpf runs the Rao-Blackwellised particle filter over an
// observation series, either loaded from a two-column CSV file or
// forward-simulated from the model itself, and optionally plots the
// tracked price mean with a 95% band.
package main

import (
	"flag"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/jj2249/mengproject"
	"github.com/jj2249/mengproject/langevin"
	"github.com/jj2249/mengproject/rbpf"
	"github.com/jj2249/mengproject/timeseries"
)

func main() {
	var (
		dataPath = flag.String("data", "", "two-column (time, price) CSV; empty simulates from the model")
		plotPath = flag.String("plot", "", "write the tracked mean and 95% band to this PNG")
		n        = flag.Int("n", 500, "number of particles")
		gsamps   = flag.Int("gsamps", 1000, "subordinator series truncation count")
		epsilon  = flag.Float64("epsilon", 0.5, "ESS degeneracy threshold in (0,1)")
		seed     = flag.Uint64("seed", 1, "random seed")
		nobs     = flag.Int("nobs", 100, "synthetic observation count (simulation only)")
		horizon  = flag.Float64("horizon", 1, "synthetic observation horizon (simulation only)")
		verbose  = flag.Bool("v", false, "log per-step diagnostics")

		mumu    = flag.Float64("mumu", 0, "prior mean of the stationary mean offset")
		sigmasq = flag.Float64("sigmasq", 1, "state variance scale")
		beta    = flag.Float64("beta", 1, "gamma subordinator scale")
		kw      = flag.Float64("kw", 1, "prior variance multiplier for the mean offset")
		kv      = flag.Float64("kv", 0.01, "observation noise multiplier")
		theta   = flag.Float64("theta", -0.5, "langevin mean-reversion coefficient")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	params := mengproject.ModelParams{
		MuMu:    *mumu,
		SigmaSq: *sigmasq,
		Beta:    *beta,
		Kw:      *kw,
		Kv:      *kv,
		Theta:   *theta,
	}
	model, err := langevin.NewModel(params.Theta)
	if err != nil {
		log.WithError(err).Fatal("model construction failed")
	}

	var series *timeseries.Series
	if *dataPath != "" {
		series, err = timeseries.Load(*dataPath)
		if err != nil {
			log.WithError(err).Fatal("observation ingestion failed")
		}
		log.WithFields(logrus.Fields{"path": *dataPath, "observations": series.Len()}).Info("loaded observations")
	} else {
		series, err = langevin.ForwardSimulate(params, model, *nobs, *horizon, *gsamps, rand.NewSource(*seed+1))
		if err != nil {
			log.WithError(err).Fatal("forward simulation failed")
		}
		log.WithField("observations", series.Len()).Info("simulated observations")
	}

	filter, err := rbpf.New(params, model, series, *n, *gsamps, *epsilon, *seed)
	if err != nil {
		log.WithError(err).Fatal("filter construction failed")
	}
	filter.SetLogger(log)

	hist, logML, err := filter.RunFilter(*plotPath != "")
	if err != nil {
		log.WithError(err).Fatal("filter run failed")
	}
	log.WithField("logMarginalLikelihood", logML).Info("filter complete")

	if *plotPath != "" {
		if err := renderHistory(series, hist, *plotPath); err != nil {
			log.WithError(err).Fatal("plotting failed")
		}
		log.WithField("path", *plotPath).Info("wrote plot")
	}
}

// renderHistory draws the zero-based observations against the filtered
// mean with a 1.96 sigma band.
func renderHistory(series *timeseries.Series, hist *rbpf.History, path string) error {
	zeroed := series.ZeroBased()

	obs := make(plotter.XYs, zeroed.Len())
	mean := make(plotter.XYs, len(hist.StateMeans))
	upper := make(plotter.XYs, len(hist.StateMeans))
	lower := make(plotter.XYs, len(hist.StateMeans))
	for i := 0; i < zeroed.Len(); i++ {
		obs[i].X, obs[i].Y = zeroed.Time(i), zeroed.Price(i)
	}
	for i, m := range hist.StateMeans {
		band := 1.96 * math.Sqrt(hist.StateVariances[i])
		t := zeroed.Time(i)
		mean[i].X, mean[i].Y = t, m
		upper[i].X, upper[i].Y = t, m+band
		lower[i].X, lower[i].Y = t, m-band
	}

	p := plot.New()
	p.Title.Text = "RBPF price tracking"
	p.X.Label.Text = "time [s]"
	p.Y.Label.Text = "price (zero-based)"

	if err := plotutil.AddLines(p,
		"Observed", obs,
		"Filtered mean", mean,
		"+1.96 sigma", upper,
		"-1.96 sigma", lower,
	); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
