package main

import (
	"github.com/staymarket/order/internal/app"
	"github.com/staymarket/order/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
