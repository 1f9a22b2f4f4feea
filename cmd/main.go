package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	authapi "github.com/connectly/connectly-backend/internal/api/auth"
	"github.com/connectly/connectly-backend/internal/api/communities"
	"github.com/connectly/connectly-backend/internal/api/dms"
	"github.com/connectly/connectly-backend/internal/api/notifications"
	"github.com/connectly/connectly-backend/internal/api/posts"
	"github.com/connectly/connectly-backend/internal/api/users"
	"github.com/connectly/connectly-backend/internal/auth"
	"github.com/connectly/connectly-backend/internal/config"
	"github.com/connectly/connectly-backend/internal/middleware"
	"github.com/connectly/connectly-backend/internal/storage"
	valkeystore "github.com/connectly/connectly-backend/internal/storage/valkey"
	"github.com/connectly/connectly-backend/internal/tasks"
	"github.com/connectly/connectly-backend/internal/ws"
)

func main() {
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := valkeystore.Connect(ctx, cfg.ValkeyAddr, cfg.ValkeyPass)
	if err != nil {
		log.Fatal("connect valkey", zap.Error(err))
	}
	defer client.Close()

	var (
		userStore         storage.UserStore         = valkeystore.NewUserStore(client)
		graphStore        storage.GraphStore        = valkeystore.NewGraphStore(client)
		postStore         storage.PostStore         = valkeystore.NewPostStore(client)
		communityStore    storage.CommunityStore    = valkeystore.NewCommunityStore(client)
		conversationStore storage.ConversationStore = valkeystore.NewConversationStore(client)
		notificationStore storage.NotificationStore = valkeystore.NewNotificationStore(client)
	)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	hub := ws.NewHub()
	gateway := ws.NewGateway(hub, conversationStore, communityStore, userStore, issuer, log)

	queue, err := tasks.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal("connect task queue", zap.Error(err))
	}
	defer func() { _ = queue.Close() }()

	worker := &tasks.Worker{
		Notifications: notificationStore,
		Users:         userStore,
		Pusher:        gateway,
		Log:           log,
	}
	taskServer, err := tasks.NewServer(cfg.RedisURL, log)
	if err != nil {
		log.Fatal("build task server", zap.Error(err))
	}
	taskMux := asynq.NewServeMux()
	worker.Register(taskMux)

	router := mux.NewRouter()
	router.Use(middleware.CORS(cfg.AllowedOrigin))

	public := router.PathPrefix("/api/v1").Subrouter()
	authed := router.PathPrefix("/api/v1").Subrouter()
	authed.Use(middleware.RequireAuth(issuer))

	authapi.RegisterRoutes(public, authed, &authapi.Handler{Users: userStore, Issuer: issuer, Log: log})
	users.RegisterRoutes(authed, &users.Handler{Users: userStore, Graph: graphStore, Queue: queue, Log: log})
	posts.RegisterRoutes(authed, &posts.Handler{Posts: postStore, Graph: graphStore, Log: log})
	communities.RegisterRoutes(authed, &communities.Handler{Comms: communityStore, Users: userStore, Log: log})
	dms.RegisterRoutes(authed, &dms.Handler{Convs: conversationStore, Gateway: gateway, Log: log})
	notifications.RegisterRoutes(authed, &notifications.Handler{Notifications: notificationStore, Log: log})

	router.HandleFunc("/ws", gateway.HandleWS)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("http server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return taskServer.Run(taskMux)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		taskServer.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
	log.Info("shutdown complete")
}
