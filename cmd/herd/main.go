package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"cyberherd/engine/actors"
	"cyberherd/engine/library"
	"cyberherd/messaging/conductor"
	"cyberherd/messaging/eventcatcher"
	"cyberherd/messaging/notifier"
	"cyberherd/messaging/relays"
	"cyberherd/state/herd"
	"cyberherd/state/targets"
)

func main() {
	// Various aspects of this application require global and local settings. To keep things
	// clean and tidy we put these settings in a Viper configuration.
	conf := viper.New()
	actors.InitConfig(conf)
	// make the config accessible globally
	actors.SetConfig(conf)
	fmt.Println("CURRENT CONFIG")
	for k, v := range actors.MakeOrGetConfig().AllSettings() {
		fmt.Printf("\nKey: %s; Value: %v\n", k, v)
	}

	terminateChan := make(chan struct{})
	actors.SetTerminateChan(terminateChan)

	identity, err := actors.MyIdentity()
	if err != nil {
		library.LogCLI(err, 0)
	}
	fmt.Println("Current pubkey: " + identity.Account)

	records, err := herd.OpenDb(conf.GetString("herdDbPath"))
	if err != nil {
		library.LogCLI(err, 0)
	}
	defer records.Close()

	accountant := herd.NewAccountant(records, conf.GetInt("maxHerdSize"))
	engine := targetEngine(conf)

	wallet := actors.NewLightningClient()
	feeder := actors.NewFeederClient()
	profiles := relays.ProfileDirectory{Relays: conf.GetStringSlice("relays")}
	notify := notifier.New(identity.PrivateKey, conf.GetStringSlice("relays"))

	ingester := conductor.New(
		conf.GetInt64("triggerAmountSats"),
		feeder,
		wallet,
		wallet,
		engine,
		accountant,
		records,
		notify,
		profiles,
	)

	catcher := eventcatcher.New(conf.GetString("herdWebsocket"), ingester)
	go catcher.Subscribe()
	if !catcher.WaitForConnection(time.Second * 30) {
		library.LogCLI("payment feed has not connected yet, continuing anyway", 2)
	}
	go ingester.StartDailyReset()
	go cliListener(ingester, records, feeder)

	<-terminateChan
	actors.GetWaitGroup().Wait()
	fmt.Println("farewell from the herd")
}

func targetEngine(conf *viper.Viper) targets.Engine {
	return targets.Engine{
		DefaultWallet: conf.GetString("defaultWalletAddress"),
		DefaultAlias:  conf.GetString("defaultWalletAlias"),
		MaxAllocation: conf.GetInt("maxAllocation"),
		MinPercent:    conf.GetInt("minPercentPerWallet"),
	}
}
