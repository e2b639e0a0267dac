package app

import (
	"errors"
	"flag"
)

type Config struct {
	DBPath       string
	SessionID    int64 // All sessions when zero
	Observations bool
	PlotFile     string // Chart of the session, format by extension
}

func NewConfigFromCLI() (*Config, error) {
	var c Config

	flag.StringVar(&c.DBPath, "db", "", "Path to the journal database file")
	flag.Int64Var(&c.SessionID, "s", 0, "Session ID, all sessions when omitted")
	flag.BoolVar(&c.Observations, "observations", false, "List the observations of the session as well")
	flag.StringVar(&c.PlotFile, "plot", "", "Path to the session chart. [png, jpg, svg, pdf]")
	flag.Parse()

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.SessionID < 0 {
		err = errors.New("invalid session id")
	} else if c.PlotFile != "" && c.SessionID == 0 {
		err = errors.New("plot requires a session id")
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	return &c, nil
}
