package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/esgarath/wardenlevel/pkg/tier"
)

type player struct {
	ID          int64          `bson:"id" json:"id"`
	Name        string         `bson:"name" json:"name"`
	Online      bool           `bson:"online" json:"online"`
	Tiers       map[string]int `bson:"tiers" json:"tiers"`
	LastUpdated int64          `bson:"last_updated" json:"last_updated"`
	UpdatedBy   string         `bson:"updated_by" json:"updated_by"`
}

var names = []string{
	"Aria", "Bran", "Cole", "Dara", "Erin", "Finn", "Gwen", "Hale",
	"Iris", "Jarl", "Kira", "Lorn", "Mara", "Nyx", "Orin", "Pell",
}

func main() {
	addr := flag.String("addr", ":8082", "HTTP server address")
	uri := flag.String("uri", "mongodb://localhost:27017", "MongoDB URI")
	dbName := flag.String("db", "wardenlevel", "Database name")
	collName := flag.String("coll", "players", "Collection name")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*uri))
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer client.Disconnect(context.Background())

	coll := client.Database(*dbName).Collection(*collName)

	http.HandleFunc("/seed", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		now := time.Now().UnixMilli()
		tiers := make(map[string]int, len(tier.DefaultProfessions))
		for _, prof := range tier.DefaultProfessions {
			tiers[prof] = tier.Clamp(rand.Intn(tier.Max + 1))
		}

		p := player{
			ID:          now,
			Name:        fmt.Sprintf("%s-%d", names[rand.Intn(len(names))], rand.Intn(1000)),
			Online:      rand.Intn(2) == 0,
			Tiers:       tiers,
			LastUpdated: now,
			UpdatedBy:   "seeder",
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := coll.InsertOne(ctx, p); err != nil {
			http.Error(w, fmt.Sprintf("failed to insert: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{Addr: *addr}

	go func() {
		fmt.Printf("Seeder server starting on %s (MongoDB: %s)\n", *addr, *uri)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	fmt.Println("\nShutting down seeder server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	server.Shutdown(shutdownCtx)
}
