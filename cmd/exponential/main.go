// Command exponential estimates the rate of an exponential distribution and
// evaluates its PDF and CDF.
//
//	go run ./cmd/exponential --data-file=waits.npy --at=0.5,1,2
//	go run ./cmd/exponential --lambtha=2.5 --at=1
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ahmedtd/mlexercises/dataset"
	"github.com/ahmedtd/mlexercises/probability"
)

var (
	dataFile = flag.String("data-file", "", "Path to a .npy array of observations to estimate lambtha from")
	lambtha  = flag.Float64("lambtha", 1, "Rate to use when --data-file is not set")
	at       = flag.String("at", "", "Comma-separated points to evaluate the PDF and CDF at")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	points, err := parsePoints(*at)
	if err != nil {
		return fmt.Errorf("while parsing --at: %w", err)
	}

	var e *probability.Exponential
	if *dataFile != "" {
		data, err := dataset.LoadNPY(*dataFile)
		if err != nil {
			return fmt.Errorf("while loading observations: %w", err)
		}
		e, err = probability.ExponentialFromData(data)
		if err != nil {
			return err
		}
		log.Printf("estimated from %d observations", len(data))
	} else {
		e, err = probability.NewExponential(*lambtha)
		if err != nil {
			return err
		}
	}

	log.Printf("lambtha=%v mean=%v", e.Lambtha, e.Mean())
	for _, x := range points {
		log.Printf("x=%v pdf=%v cdf=%v", x, e.PDF(x), e.CDF(x))
	}
	return nil
}

func parsePoints(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	points := []float64{}
	for _, field := range strings.Split(s, ",") {
		x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, err
		}
		points = append(points, x)
	}
	return points, nil
}
