package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"betpulse/config"
	"betpulse/database"
	"betpulse/models"
	"betpulse/services"
	"betpulse/utils"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/socket"
)

// chatUser is the authenticated identity bound to a connection after a
// successful "user" event.
type chatUser struct {
	ID    int64
	Email string
}

func main() {
	_ = godotenv.Load()
	config.NewLogger()

	cfg, err := config.Load("config.yml")
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	logrus.Info("connecting to postgres...")
	if err := database.ConnectPostgres(cfg); err != nil {
		logrus.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	db := database.NewDatabase()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	chat := services.NewChatService(db, rdb)

	io := socketio.NewServer(nil, nil)

	var mu sync.Mutex
	clients := make(map[socketio.SocketId]*chatUser)

	emitError := func(socket *socketio.Socket, msg string) {
		socket.Emit("error", map[string]interface{}{
			"Status":        false,
			"StatusCode":    1,
			"StatusMessage": msg,
		})
	}

	io.On("connection", func(conn ...any) {
		if len(conn) == 0 {
			return
		}
		socket := conn[0].(*socketio.Socket)
		clientID := socket.Id()

		mu.Lock()
		clients[clientID] = nil
		total := len(clients)
		mu.Unlock()
		logrus.Infof("connected: %s | total: %d", clientID, total)

		socket.Emit("connected", map[string]interface{}{
			"id":        clientID,
			"message":   "Welcome to the BetPulse lobby",
			"timestamp": time.Now().Unix(),
		})

		socket.On("ping", func(data ...any) {
			socket.Emit("pong", map[string]interface{}{
				"message":   "pong",
				"timestamp": time.Now().Unix(),
				"id":        clientID,
			})
		})

		// authenticate the connection with a bearer token
		socket.On("user", func(data ...any) {
			if len(data) == 0 {
				return
			}

			var tokenString string
			switch v := data[0].(type) {
			case map[string]interface{}:
				if token, ok := v["token"].(string); ok {
					tokenString = token
				}
			case string:
				tokenString = v
			default:
				emitError(socket, "invalid data format")
				return
			}
			if tokenString == "" {
				emitError(socket, "missing token")
				return
			}

			claims, err := utils.VerifyToken(cfg.JWT.Secret, tokenString)
			if err != nil {
				emitError(socket, err.Error())
				return
			}
			userID, err := utils.ClaimsUserID(claims)
			if err != nil {
				emitError(socket, err.Error())
				return
			}

			user, err := db.FindUserByID(context.Background(), userID)
			if err != nil {
				emitError(socket, err.Error())
				return
			}

			mu.Lock()
			clients[clientID] = &chatUser{ID: user.ID, Email: user.Email}
			mu.Unlock()

			socket.Emit("user_info", map[string]interface{}{
				"Status":        200,
				"StatusCode":    0,
				"Data":          user,
				"StatusMessage": "Success",
			})
		})

		socket.On("history", func(data ...any) {
			messages, err := chat.History(context.Background())
			if err != nil {
				emitError(socket, err.Error())
				return
			}
			if messages == nil {
				messages = []models.ChatMessage{}
			}
			socket.Emit("history_list", map[string]interface{}{
				"Status":        200,
				"StatusCode":    0,
				"Data":          messages,
				"StatusMessage": "Success",
			})
		})

		socket.On("message", func(data ...any) {
			if len(data) == 0 {
				return
			}
			payload, ok := data[0].(map[string]interface{})
			if !ok {
				emitError(socket, "invalid data format")
				return
			}
			text, _ := payload["message"].(string)

			mu.Lock()
			user := clients[clientID]
			mu.Unlock()
			if user == nil {
				emitError(socket, "authenticate first")
				return
			}

			// fan-out happens via the redis subscription below
			if _, err := chat.PostMessage(context.Background(), &user.ID, user.Email, text); err != nil {
				emitError(socket, err.Error())
				return
			}
		})

		socket.On("typing", func(data ...any) {
			mu.Lock()
			user := clients[clientID]
			mu.Unlock()
			if user == nil {
				return
			}
			io.Emit("user_typing", map[string]interface{}{
				"author":    user.Email,
				"timestamp": time.Now().Unix(),
			})
		})

		socket.On("disconnect", func(reason ...any) {
			mu.Lock()
			delete(clients, clientID)
			remaining := len(clients)
			mu.Unlock()
			logrus.Infof("disconnected: %s | remaining: %d", clientID, remaining)
		})
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// every gateway instance mirrors the shared channel to its own clients
	go func() {
		for {
			err := chat.Subscribe(ctx, func(msg models.ChatMessage) {
				io.Emit("chat_message", map[string]interface{}{
					"Status":        200,
					"StatusCode":    0,
					"Data":          msg,
					"StatusMessage": "Success",
				})
			})
			if ctx.Err() != nil {
				return
			}
			logrus.Warnf("chat subscription dropped, retrying: %v", err)
			time.Sleep(2 * time.Second)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connected := len(clients)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		jsonData, err := json.Marshal(map[string]interface{}{
			"status":            "healthy",
			"service":           "BetPulse Chat Gateway",
			"connected_clients": connected,
			"timestamp":         time.Now().Unix(),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write(jsonData)
	})
	mux.Handle("/socket.io/", io.ServeHandler(nil))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.SocketPort),
		Handler: mux,
	}

	go func() {
		logrus.Infof("chat gateway starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down chat gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	io.Close(nil)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error during shutdown: %v", err)
	}
	logrus.Info("chat gateway stopped")
}
