package main

import (
	"context"
	"flag"
	"math/rand"
	"strings"
	"time"

	"github.com/muhammadchandra19/settlement/pkg/logger"
	orderreaderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order-reader/v1"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

func main() {
	var (
		brokers     = flag.String("brokers", "localhost:9092", "Kafka broker addresses (comma-separated)")
		topic       = flag.String("topic", "settlement-commands", "Kafka topic name")
		pair        = flag.String("pair", "BTC/JPY", "Pair to trade, BASE/QUOTE")
		delay       = flag.Duration("delay", 100*time.Millisecond, "Delay between sending commands")
		count       = flag.Int("count", 1000, "Number of orders to generate")
		users       = flag.Int("users", 20, "Number of distinct users")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		basePrice   = flag.String("base-price", "3945.5", "Base price for orders")
		priceSpread = flag.String("price-spread", "200", "Price spread range")
		fundBase    = flag.String("fund-base", "100", "Base asset deposited per user")
		fundQuote   = flag.String("fund-quote", "1000000", "Quote asset deposited per user")
	)
	flag.Parse()

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	assets := strings.SplitN(*pair, "/", 2)
	if len(assets) != 2 || assets[0] == "" || assets[1] == "" {
		log.GetZap().Fatal("Invalid pair " + *pair + ", expected BASE/QUOTE")
	}

	g := &generator{
		rng:         rand.New(rand.NewSource(*seed)),
		base:        assets[0],
		quote:       assets[1],
		basePrice:   decimal.RequireFromString(*basePrice),
		priceSpread: decimal.RequireFromString(*priceSpread),
	}
	for i := 0; i < *users; i++ {
		g.users = append(g.users, userID(i+1))
	}

	cmds := g.deposits(decimal.RequireFromString(*fundBase), decimal.RequireFromString(*fundQuote))
	cmds = append(cmds, g.orders(*count)...)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:        *topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	ctx := context.Background()
	log.Info("Sending commands",
		logger.Field{Key: "brokers", Value: *brokers},
		logger.Field{Key: "topic", Value: *topic},
		logger.Field{Key: "commands", Value: len(cmds)},
		logger.Field{Key: "seed", Value: *seed},
	)

	sent := 0
	for i, cmd := range cmds {
		value, err := orderreaderv1.ToBytes(cmd)
		if err != nil {
			log.Error(err, logger.Field{Key: "requestID", Value: cmd.RequestID})
			continue
		}

		msg := kafka.Message{
			Key:   []byte(cmd.Key()),
			Value: value,
			Time:  time.Now(),
		}
		if err := writer.WriteMessages(ctx, msg); err != nil {
			log.Error(err, logger.Field{Key: "requestID", Value: cmd.RequestID})
			continue
		}
		sent++

		if (i+1)%100 == 0 || i == len(cmds)-1 {
			log.Info("Progress",
				logger.Field{Key: "sent", Value: sent},
				logger.Field{Key: "total", Value: len(cmds)},
			)
		}
		if cmd.Type == orderreaderv1.CommandPlace && i < len(cmds)-1 {
			time.Sleep(*delay)
		}
	}

	log.Info("Done", logger.Field{Key: "sent", Value: sent}, logger.Field{Key: "failed", Value: len(cmds) - sent})
}
