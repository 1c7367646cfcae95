package main

import (
	"context"
	"fmt"
	"imaging-demo-service/internal/app/config"
	"imaging-demo-service/internal/app/drivers/logger"
	"imaging-demo-service/internal/app/models"
	"imaging-demo-service/internal/app/services/dicom"
	imagingStudiesFhir "imaging-demo-service/internal/app/services/fhir_spark/imaging_studies"
	"imaging-demo-service/internal/app/services/shared/fetcher"
	"imaging-demo-service/internal/pkg/constvars"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type options struct {
	fhirBaseURL string
	token       string
	patientID   string
	outputDir   string
	verbose     bool
}

func main() {
	internalConfig := config.NewInternalConfig()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "imaging-download",
		Short: "Download DICOM studies referenced by FHIR ImagingStudy resources",
	}
	rootCmd.PersistentFlags().StringVar(&opts.fhirBaseURL, "fhir-url", internalConfig.FHIR.ImagingBaseUrl, "FHIR base url of the imaging server")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("IMAGING_BEARER_TOKEN"), "bearer token forwarded to the servers")
	rootCmd.PersistentFlags().StringVar(&opts.patientID, "patient", "", "FHIR patient id")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	_ = rootCmd.MarkPersistentFlagRequired("patient")

	rootCmd.AddCommand(listCmd(internalConfig, opts))
	rootCmd.AddCommand(studyCmd(internalConfig, opts))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func listCmd(internalConfig *config.InternalConfig, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the patient's imaging studies",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewLogrusLogger(internalConfig.App.Env, opts.verbose)
			ctx := withToken(cmd.Context(), opts.token)

			studies, err := findStudies(ctx, internalConfig, opts)
			if err != nil {
				log.WithError(err).Error("Failed to list studies")
				return err
			}
			for _, study := range studies {
				date := ""
				if study.Date() != nil {
					date = study.Date().Format(time.DateOnly)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d series\n",
					study.StudyID(), date, strings.Join(study.Modalities(), ","), study.NSeries())
			}
			log.WithField(constvars.LoggingStudiesCountKey, len(studies)).Debug("Listed studies")
			return nil
		},
	}
}

func studyCmd(internalConfig *config.InternalConfig, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study <studyID>",
		Short: "Download one study and print its series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewLogrusLogger(internalConfig.App.Env, opts.verbose)
			ctx := withToken(cmd.Context(), opts.token)
			ctx, cancel := context.WithTimeout(ctx, time.Duration(internalConfig.Dicom.DownloadTimeoutInSeconds)*time.Second)
			defer cancel()

			studies, err := findStudies(ctx, internalConfig, opts)
			if err != nil {
				log.WithError(err).Error("Failed to list studies")
				return err
			}
			var study *models.Study
			for _, candidate := range studies {
				if candidate.StudyID() == args[0] || candidate.ResourceID() == args[0] {
					study = candidate
					break
				}
			}
			if study == nil {
				return fmt.Errorf("study %s not found for patient %s", args[0], opts.patientID)
			}

			registry := dicom.NewMemoryRegistry()
			start := time.Now()
			err = study.Download(ctx, newLoader(internalConfig, opts, registry))
			if err != nil {
				log.WithError(err).WithField(constvars.LoggingStudyIDKey, study.StudyID()).Error("Failed to download study")
				return err
			}
			log.WithFields(logrus.Fields{
				constvars.LoggingStudyIDKey:     study.StudyID(),
				constvars.LoggingSeriesCountKey: study.NSeries(),
				constvars.LoggingDurationKey:    time.Since(start).String(),
			}).Info("Study downloaded")

			for i, series := range study.Series() {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s %s %q (%d images)\n",
					i, series.SeriesID(), series.Modality(), series.Description(), series.Len())
			}

			if opts.outputDir != "" {
				return writeBlobs(ctx, registry, opts.outputDir, log)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.outputDir, "out", "o", "", "directory to write the downloaded instances to")
	return cmd
}

func findStudies(ctx context.Context, internalConfig *config.InternalConfig, opts *options) ([]*models.Study, error) {
	client := imagingStudiesFhir.NewImagingStudyFhirClient(opts.fhirBaseURL, newFetcher(internalConfig), zap.NewNop())
	resources, err := client.FindImagingStudiesByPatient(ctx, opts.patientID)
	if err != nil {
		return nil, err
	}
	studies := make([]*models.Study, 0, len(resources))
	for i := range resources {
		studies = append(studies, models.NewStudyFromImagingStudy(&resources[i]))
	}
	return studies, nil
}

func newFetcher(internalConfig *config.InternalConfig) dicom.Fetcher {
	limiter := rate.NewLimiter(rate.Limit(internalConfig.App.UpstreamRequestsPerSecond), internalConfig.App.UpstreamRequestsBurst)
	return fetcher.NewBearerFetcher(&http.Client{}, limiter, zap.NewNop())
}

func newLoader(internalConfig *config.InternalConfig, opts *options, registry dicom.BlobRegistry) models.SeriesLoader {
	zapLogger := zap.NewNop()
	if opts.verbose {
		zapLogger, _ = zap.NewDevelopment()
	}
	multipartFetcher := dicom.NewMultipartFetcher(newFetcher(internalConfig), dicom.RetryPolicy{
		Delay:      time.Duration(internalConfig.Dicom.RetryDelayInMilliseconds) * time.Millisecond,
		MaxRetries: internalConfig.Dicom.MaxRetries,
	}, zapLogger)
	return dicom.NewStudyLoader(
		multipartFetcher,
		dicom.NewDatasetDecoder(dicom.DecoderConfig{}),
		registry,
		dicom.LoaderConfig{
			DecodePolicy:      internalConfig.Dicom.DecodePolicy,
			DecodeConcurrency: internalConfig.Dicom.DecodeConcurrency,
			MaxPayloadSize:    internalConfig.Dicom.MaxPayloadSizeInMegabytes << 20,
		},
		zapLogger,
	)
}

// writeBlobs stores every registered instance as <outputDir>/<n>.dcm.
func writeBlobs(ctx context.Context, registry *dicom.MemoryRegistry, outputDir string, log *logrus.Logger) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	for i := 0; i < registry.Len(); i++ {
		imageID := fmt.Sprintf("%s%d", constvars.DicomImageIDPrefix, i)
		reader, _, err := registry.Open(ctx, imageID)
		if err != nil {
			return err
		}
		path := filepath.Join(outputDir, fmt.Sprintf("%d.dcm", i))
		err = writeFile(path, reader)
		reader.Close()
		if err != nil {
			return err
		}
		log.WithField(constvars.LoggingImageIDKey, imageID).Debug("Wrote " + path)
	}
	return nil
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func withToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, constvars.CONTEXT_BEARER_TOKEN_KEY, token)
}
