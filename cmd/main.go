package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"neotrade/cmd/feedsim"
	"neotrade/cmd/token"
	"neotrade/src/database"
	"neotrade/src/feed"
	"neotrade/src/insight"
	"neotrade/src/logging"
	"neotrade/src/model"
	"neotrade/src/repository"
	"neotrade/src/server"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	_ = godotenv.Load()

	closer := logging.Setup(logging.GetConfig())
	defer closer.Close()

	app := cli.NewApp()
	app.Name = "NeoTrade CMD"
	app.Usage = "The NeoTrade command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		serveCMD,
		feedCMD,
		quotesCMD,
		tokenCMD,
		insightCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the terminal API",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the HTTP and WebSocket terminal API`,
	}
	feedCMD = cli.Command{
		Name:        "feed",
		Usage:       "run the price feed",
		Action:      feedAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the price feed on its own and log every tick`,
	}
	quotesCMD = cli.Command{
		Name:        "quotes",
		Usage:       "print exchange quotes",
		Action:      quotesAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Fetch one quote per FEED_QUOTE_PAIRS entry from Binance`,
	}
	tokenCMD = cli.Command{
		Name:      "token",
		Usage:     "issue a credential",
		Action:    tokenAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "user",
				Usage: "rotate the credential of an existing user instead of creating one",
			},
		},
		Description: `Issue a pre-issued credential for the terminal`,
	}
	insightCMD = cli.Command{
		Name:        "insight",
		Usage:       "ask for a market insight",
		Action:      insightAction,
		ArgsUsage:   "[prompt]",
		Flags:       []cli.Flag{},
		Description: `Ask the insight service once and print the answer`,
	}
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveAction(_ *cli.Context) error {

	logrus.Info("Starting serve CMD")

	ctx, stop := signalContext()
	defer stop()

	if err := server.Serve(ctx); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func feedAction(_ *cli.Context) error {

	logrus.Info("Starting feed CMD")

	f := &feedsim.FeedSim{Log: logrus.WithField("cmd", "feed")}
	if err := f.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func quotesAction(_ *cli.Context) error {

	log := logrus.WithField("cmd", "quotes")

	pairs, err := feed.ParseQuotePairs(feed.GetConfig().QuotePairs)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("FEED_QUOTE_PAIRS is empty")
	}

	ctx, stop := signalContext()
	defer stop()

	source := feed.NewBinanceQuoteSource(pairs)
	for symbol := range pairs {
		price, err := source.Quote(ctx, symbol)
		if err != nil {
			log.WithError(err).WithField("symbol", symbol).Warn("quote failed")
			continue
		}
		fmt.Printf("%s\t%s\n", symbol, price.StringFixed(2))
	}

	return nil
}

func tokenAction(c *cli.Context) error {

	logrus.Info("Starting token CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	issuer := &token.Issuer{DB: database.MainDB, Out: os.Stdout}
	if err := issuer.Issue(context.Background(), c.String("user")); err != nil {
		logrus.WithError(err).Error("Issuing token")
		return err
	}

	return nil
}

func insightAction(c *cli.Context) error {

	log := logrus.WithField("cmd", "insight")
	if err := database.InitMainDB(); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, stop := signalContext()
	defer stop()

	service := insight.NewService(
		insight.NewClient(insight.GetConfig()),
		repository.NewExceptionRepositoryWithDB(database.MainDB),
	)

	id := model.Identity{Tenant: server.GetConfig().AppID, UserID: "cli"}
	text, err := service.Insight(ctx, id, strings.Join(c.Args(), " "))
	if err != nil {
		return err
	}

	fmt.Println(text)
	return nil
}
