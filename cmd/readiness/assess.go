package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readiness/internal/ingest"
	"github.com/xxxsen/readiness/internal/model"
	"github.com/xxxsen/readiness/internal/pkg/apikey"
	"github.com/xxxsen/readiness/internal/report"
	"github.com/xxxsen/readiness/internal/service"
)

func newAssessCmd() *cobra.Command {
	var (
		configPath string
		orgName    string
		orgContext string
		outDir     string
	)
	cmd := &cobra.Command{
		Use:   "assess [files...]",
		Short: "run one assessment over local documents and write the report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return runAssessment(cmd.Context(), a.service, orgName, orgContext, outDir, args)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	cmd.Flags().StringVar(&orgName, "org", "", "organisation name")
	cmd.Flags().StringVar(&orgContext, "context", "", "additional organisation context")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory for report files")
	return cmd
}

func runAssessment(ctx context.Context, svc *service.AssessmentService, org, orgContext, outDir string, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logutil.GetLogger(ctx)
	inputs := make([]ingest.Input, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		inputs = append(inputs, ingest.Input{Name: filepath.Base(p), Data: data})
	}

	id, err := svc.CreateSession(ctx, service.CreateRequest{
		OrganisationName: org,
		Context:          orgContext,
		Files:            inputs,
	})
	if err != nil {
		return err
	}
	logger.Info("assessment started", zap.String("session_id", id), zap.Int("files", len(inputs)))
	svc.Wait()

	view, err := svc.GetStatus(ctx, id)
	if err != nil {
		return err
	}
	if view.Status != model.StatusComplete {
		return fmt.Errorf("assessment %s ended %s: %s", id, view.Status, view.Error)
	}
	rpt := view.Report
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	js, err := report.MarshalJSON(rpt)
	if err != nil {
		return err
	}
	pdf, err := report.RenderPDF(rpt)
	if err != nil {
		return err
	}
	for name, data := range map[string][]byte{
		report.FileName(rpt, "json"): js,
		report.FileName(rpt, "pdf"):  pdf,
	} {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	logger.Info("assessment complete",
		zap.String("report_id", rpt.ReportID),
		zap.Float64("overall_score", rpt.OverallScore),
		zap.String("maturity", string(rpt.OverallMaturity)),
		zap.Bool("partial", view.Partial),
		zap.String("out", outDir),
	)
	fmt.Printf("%s %s %.1f %s\n", rpt.ReportID, rpt.OrganisationName, rpt.OverallScore, rpt.OverallMaturity)
	return nil
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "generate an api key and its bcrypt hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := apikey.Generate()
			if err != nil {
				return err
			}
			hash, err := apikey.Hash(key)
			if err != nil {
				return err
			}
			fmt.Printf("key:  %s\nhash: %s\n", key, hash)
			return nil
		},
	}
}
