package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime/pprof"
	"time"

	"bourse/engine"
)

func main() {
	totalOrders := flag.Int("orders", 500000, "number of orders to submit")
	priceLevels := flag.Int64("price-levels", 200, "unique price levels around the mid")
	basePrice := flag.Int64("base-price", 10000, "mid price used for randomization")
	traders := flag.Int("traders", 16, "number of trading accounts")
	iocRatio := flag.Int("ioc-ratio", 5, "1 in N orders will be IOC")
	cancelEvery := flag.Int("cancel-every", 0, "cancel one account's orders every N submissions")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for deterministic random streams")
	cpuProfile := flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile := flag.String("memprofile", "", "write heap profile to file")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			panic(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			panic(err)
		}
		defer pprof.StopCPUProfile()
	}

	accounts := make([]engine.AccountSpec, 0, *traders)
	for i := 0; i < *traders; i++ {
		accounts = append(accounts, engine.AccountSpec{
			ID:    uint64(i + 1),
			Alias: fmt.Sprintf("lg-%02d", i),
		})
	}
	exchange, err := engine.NewExchange([]engine.TickerSpec{{ID: 1, Alias: "SIM"}}, accounts)
	if err != nil {
		panic(err)
	}

	var trades, rejected int
	start := time.Now()
	for i := 0; i < *totalOrders; i++ {
		side := engine.Side(rng.Intn(2))
		price := nextPrice(rng, side, *basePrice, *priceLevels)
		volume := rng.Int63n(5) + 1
		user := uint64(rng.Intn(*traders) + 1)
		ioc := *iocRatio > 0 && rng.Intn(*iocRatio) == 0

		if _, err := exchange.PlaceOrder(side, user, 1, price, volume, ioc); err != nil {
			rejected++
		}
		if *cancelEvery > 0 && i > 0 && i%*cancelEvery == 0 {
			_ = exchange.CancelAll(uint64(rng.Intn(*traders) + 1))
		}
		trades += len(exchange.ConsumeTransactions())
	}
	elapsed := time.Since(start)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err == nil {
			defer f.Close()
			_ = pprof.WriteHeapProfile(f)
		}
	}

	ordersPerSec := float64(*totalOrders) / elapsed.Seconds()
	tradesPerSec := float64(trades) / elapsed.Seconds()

	fmt.Printf("submitted %d orders in %s (%.0f orders/s, %d rejected)\n",
		*totalOrders, elapsed.Truncate(time.Millisecond), ordersPerSec, rejected)
	fmt.Printf("matched %d trades (%.0f trades/s)\n", trades, tradesPerSec)
	fmt.Printf("config: traders=%d price-levels=%d ioc-ratio=1/%d seed=%d\n",
		*traders, *priceLevels, *iocRatio, *seed)
}

func nextPrice(rng *rand.Rand, side engine.Side, mid, width int64) int64 {
	if side == engine.Bid {
		return mid + rng.Int63n(width)
	}
	price := mid - rng.Int63n(width)
	if price <= 0 {
		price = 1
	}
	return price
}
