package actors

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"cyberherd/engine/library"
)

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) {
	// secrets (wallet keys, signing key) come from the environment; a .env
	// file next to the binary is honoured the way the rest of the deployment
	// expects
	if err := godotenv.Load(); err != nil {
		library.LogCLI("no .env file found, reading secrets from environment only", 3)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	config.SetDefault("rootDir", homeDir+"/cyberherd/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		library.LogCLI(err.Error(), 4)
	}
	config.SetDefault("logLevel", 4)

	// external services
	config.SetDefault("lnbitsUrl", "http://127.0.0.1:3007")
	config.SetDefault("openhabUrl", "http://127.0.0.1:8080")
	config.SetDefault("herdWebsocket", "ws://127.0.0.1:3007/api/v1/ws")
	config.SetDefault("feederRule", "88bd9ec4de")
	config.SetDefault("relays", []string{
		"wss://relay.primal.net",
		"wss://relay.nostr.band",
		"wss://relay.damus.io",
		"wss://nos.lol",
	})

	// herd behaviour
	config.SetDefault("triggerAmountSats", int64(1000))
	config.SetDefault("maxHerdSize", 100)
	config.SetDefault("maxAllocation", 10)
	config.SetDefault("minPercentPerWallet", 1)
	config.SetDefault("retryAttempts", 4)
	config.SetDefault("herdDbPath", config.GetString("rootDir")+"herd.db")
	config.SetDefault("defaultWalletAlias", "Sat Feeder")

	// secrets and identity are only ever read from the environment
	for key, envVar := range map[string]string{
		"herdKey":              "HERD_KEY",
		"splitsKey":            "CYBERHERD_KEY",
		"nosSec":               "NOS_SEC",
		"hexKey":               "HEX_KEY",
		"openhabAuth":          "OH_AUTH_1",
		"defaultWalletAddress": "PREDEFINED_WALLET_ADDRESS",
	} {
		if err := config.BindEnv(key, envVar); err != nil {
			library.LogCLI(err.Error(), 0)
		}
	}

	// Create our working directory and config file if not exist
	initRootDir(config)
	library.Touch(config.GetString("rootDir") + "config.yaml")
	err = config.WriteConfig()
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.Mkdir(conf.GetString("rootDir"), 0755)
		if err != nil {
			library.LogCLI(err, 0)
		}
	}
}

var conf *viper.Viper

func MakeOrGetConfig() *viper.Viper {
	return conf
}

func SetConfig(config *viper.Viper) {
	conf = config
}
