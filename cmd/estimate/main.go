package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"medcharges/logging"
	"medcharges/ml"
	"medcharges/money"
)

func main() {
	logger, err := logging.New(logging.Options{Level: "warn"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Fatal("estimate failed", zap.Error(err))
	}
}

func run(args []string, out io.Writer, logger *zap.Logger) error {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	fs.SetOutput(out)
	modelPath := fs.String("model", "models/reg.json", "model artifact path")
	age := fs.Int("age", 25, "age in years (18-100)")
	sex := fs.String("sex", "Male", "Male or Female")
	bmi := fs.Float64("bmi", 25.0, "body-mass index (10-50)")
	children := fs.Int("children", 1, "number of children (0-5)")
	smoker := fs.String("smoker", "No", "Yes or No")
	region := fs.String("region", "southwest", "southwest, southeast, northeast or northwest")
	raw := fs.Bool("raw", false, "print the bare number instead of a formatted amount")
	if err := fs.Parse(args); err != nil {
		return err
	}

	profile := ml.PatientProfile{Age: *age, BMI: *bmi, Children: *children}
	var err error
	if profile.Sex, err = ml.ParseSex(*sex); err != nil {
		return err
	}
	if profile.Smoker, err = ml.ParseSmoker(*smoker); err != nil {
		return err
	}
	if profile.Region, err = ml.ParseRegion(*region); err != nil {
		return err
	}

	model, err := ml.LoadModel(*modelPath)
	if err != nil {
		return err
	}

	estimate, err := ml.NewEstimator(model, logger).Estimate(context.Background(), profile)
	if err != nil {
		return err
	}

	if *raw {
		fmt.Fprintf(out, "%.2f\n", estimate.Charges)
		return nil
	}
	fmt.Fprintf(out, "Estimated medical charges: %s\n", money.Format(estimate.Charges))
	return nil
}
