package main

//go:generate swag init -g cmd/arbitrage/main.go -o docs

// @title           Event Arbitrage API
// @version         0.1.0
// @description     Confirmed-event scan cycles, trade history, and daily reports.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
