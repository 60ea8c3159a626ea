package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lambertxiao/go-fcp/pkg/config"
	"github.com/lambertxiao/go-fcp/pkg/fcp"
	"github.com/lambertxiao/go-fcp/pkg/logg"
	"github.com/lambertxiao/go-fcp/pkg/metrics"
	"github.com/lambertxiao/go-fcp/pkg/source"
	"github.com/lambertxiao/go-fcp/pkg/storage"
	"github.com/lambertxiao/go-fcp/pkg/types"
	"github.com/lambertxiao/go-fcp/pkg/utils"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
)

func writeCommand() cli.Command {
	return cli.Command{
		Name:      "write",
		Usage:     "copy <src> into entry <name> of every partition table listed by --offset",
		ArgsUsage: "<src> [type:]<target>:<name>",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  C_OFFSET,
				Usage: "Partition table offsets separated by ',' or ':', e.g. 0x0,0x3f0000",
			},
			cli.StringFlag{
				Name:  C_BUFFER,
				Usage: "I/O buffer size, e.g. 64k. Defaults to the partition block size",
			},
			cli.BoolFlag{
				Name:  C_PROTECTED,
				Usage: "Also write entries flagged protected",
			},
			cli.BoolFlag{
				Name:  C_VERBOSE,
				Usage: "Report every action on stderr",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				cli.ShowCommandHelp(c, "write")
				return fmt.Errorf("write needs two arguments, got %d", c.NArg())
			}

			args, err := NewWriteArgs(c)
			if err != nil {
				return err
			}
			return runWrite(args, config.GetGConfig())
		},
	}
}

// ParseTarget splits [type:]<target>:<name>. The name follows the last colon
// and the type, when present, precedes the first one.
func ParseTarget(s string) (typ, target, name string, err error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return "", "", "", fmt.Errorf("invalid target '%s': missing entry name", s)
	}
	target, name = s[:i], s[i+1:]

	typ = types.DEFAULT_DST_TYPE
	if j := strings.IndexByte(target, ':'); j >= 0 {
		typ, target = target[:j], target[j+1:]
	}

	if typ == "" || target == "" || name == "" {
		return "", "", "", fmt.Errorf("invalid target '%s'", s)
	}
	return typ, target, name, nil
}

func NewWriteArgs(c *cli.Context) (*types.WriteArgs, error) {
	typ, target, name, err := ParseTarget(c.Args().Get(1))
	if err != nil {
		return nil, err
	}

	args := &types.WriteArgs{
		Source:    c.Args().Get(0),
		DstType:   typ,
		DstTarget: target,
		DstName:   name,
		Offset:    c.String(flagName(C_OFFSET)),
		Buffer:    c.String(flagName(C_BUFFER)),
		Verbose:   c.Bool(flagName(C_VERBOSE)),
		Protected: c.Bool(flagName(C_PROTECTED)),
	}
	if args.Buffer == "" {
		if cfg := config.GetGConfig(); cfg != nil {
			args.Buffer = cfg.Buffer
		}
	}
	return args, nil
}

func runWrite(args *types.WriteArgs, cfg *config.FCPConfig) error {
	var m *metrics.WriteMetrics
	var reg prometheus.Registerer
	if cfg.MetricsFile != "" {
		m = metrics.New(filepath.Base(args.DstTarget))
		reg = m.Registerer
	}

	var sto storage.Storage
	if cfg.StorageConfig.Endpoint != "" {
		s3, err := storage.NewS3Storage(cfg.StorageConfig, reg)
		if err != nil {
			return err
		}
		sto = s3
	}

	writer := fcp.NewWriter(fcp.FileOpener{}, source.NewOpener(sto),
		fcp.WithMetrics(m),
		fcp.WithDiagnostics(os.Stderr),
	)

	start := utils.SelfUsage()
	res, err := writer.Write(args)
	usage := utils.SelfUsage().Since(start)
	logg.Dlog.Debugf("usage: user %v, sys %v, rss %s", usage.User, usage.System, humanize.IBytes(usage.RSS))
	if res != nil {
		logg.Dlog.Infof("%s: %d partitions, %d written, %d skipped as duplicate",
			res.LastPartition, len(res.Outcomes), res.Count(fcp.OutcomeWritten), res.Count(fcp.OutcomeDuplicate))
	}

	if merr := m.WriteToTextfile(cfg.MetricsFile); merr != nil {
		logg.Dlog.Warnf("write metrics to %s: %v", cfg.MetricsFile, merr)
	}
	return err
}
