package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/hcl"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/catamtz3/cse444-simpledb/engine"
)

var (
	simpledbCmd = &cobra.Command{
		Use:               "simpledb",
		Short:             "A heap file storage engine",
		Long:              "SimpleDB is a page based storage engine with transactions.",
		PersistentPreRunE: simpledbPreRun,
		PersistentPostRun: simpledbPostRun,
	}

	logFile   = "simpledb.log"
	logLevel  = "info"
	logStderr = false
	logWriter io.WriteCloser

	configFile = "simpledb.hcl"
	noConfig   = false

	dataDir        = "data"
	pageSize       = engine.DefaultPageSize
	bufferPages    = 0
	lockWait       = time.Duration(0)
	lockWaitRounds = 0
	evictSeed      = int64(0)

	cfgVars   = map[string]*pflag.Flag{}
	cfg       = map[string]interface{}{}
	usedFlags = map[string]struct{}{}
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	fs := simpledbCmd.PersistentFlags()

	fs.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	cfgVars["log-file"] = fs.Lookup("log-file")

	fs.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	cfgVars["log-level"] = fs.Lookup("log-level")

	fs.BoolVarP(&logStderr, "log-stderr", "s", logStderr, "log to standard error")

	fs.StringVar(&configFile, "config-file", configFile, "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", noConfig, "don't load config file")

	fs.StringVar(&dataDir, "data-dir", dataDir, "`directory` holding the database files")
	cfgVars["data-dir"] = fs.Lookup("data-dir")

	fs.IntVar(&pageSize, "page-size", pageSize, "heap page size in bytes")
	cfgVars["page-size"] = fs.Lookup("page-size")

	fs.IntVar(&bufferPages, "buffer-pages", bufferPages, "buffer pool capacity in pages")
	cfgVars["buffer-pages"] = fs.Lookup("buffer-pages")

	fs.DurationVar(&lockWait, "lock-wait", lockWait, "lock wait round duration")
	cfgVars["lock-wait"] = fs.Lookup("lock-wait")

	fs.IntVar(&lockWaitRounds, "lock-wait-rounds", lockWaitRounds,
		"timed out lock wait rounds before aborting")
	cfgVars["lock-wait-rounds"] = fs.Lookup("lock-wait-rounds")

	fs.Int64Var(&evictSeed, "evict-seed", evictSeed,
		"seed for the eviction choice; 0 seeds from the clock")
	cfgVars["evict-seed"] = fs.Lookup("evict-seed")
}

func Execute() error {
	return simpledbCmd.Execute()
}

func engineConfig() engine.Config {
	return engine.Config{
		DataDir:        dataDir,
		PageSize:       pageSize,
		BufferPages:    bufferPages,
		LockWait:       lockWait,
		LockWaitRounds: lockWaitRounds,
		EvictSeed:      evictSeed,
	}
}

func simpledbPreRun(cmd *cobra.Command, args []string) error {
	cmd.Flags().Visit(
		func(flg *pflag.Flag) {
			usedFlags[flg.Name] = struct{}{}
		})

	if configFile != "" && !noConfig {
		err := loadConfig()
		if err != nil {
			return fmt.Errorf("simpledb: %s", err)
		}
	}

	if !logStderr && logFile != "" {
		var err error
		logWriter, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logWriter = nil
			return fmt.Errorf("simpledb: %s", err)
		}
		log.SetOutput(logWriter)
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("simpledb: %s", err)
	}
	log.SetLevel(ll)

	log.WithField("pid", os.Getpid()).Info("simpledb starting")
	return nil
}

func simpledbPostRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("simpledb done")

	if logWriter != nil {
		logWriter.Close()
	}
}

func loadConfig() error {
	b, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	err = hcl.Decode(&cfg, string(b))
	if err != nil {
		return err
	}

	for name, val := range cfg {
		flg, ok := cfgVars[name]
		if !ok {
			return fmt.Errorf("%s is not a config variable", name)
		}
		if flg == nil {
			continue
		}
		if _, ok := usedFlags[flg.Name]; ok {
			continue
		}
		err := flg.Value.Set(fmt.Sprintf("%v", val))
		if err != nil {
			return fmt.Errorf("%s: %s", name, err)
		}
	}

	return nil
}
