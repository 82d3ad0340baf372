package gamedb

// Every backend registers itself with the registry so Open can resolve any connection string
import (
	_ "github.com/autom8ter/gamedb/backend/badger"
	_ "github.com/autom8ter/gamedb/backend/bolt"
	_ "github.com/autom8ter/gamedb/backend/jsonfile"
	_ "github.com/autom8ter/gamedb/backend/memory"
	_ "github.com/autom8ter/gamedb/backend/mongo"
	_ "github.com/autom8ter/gamedb/backend/pebble"
	_ "github.com/autom8ter/gamedb/backend/redis"
)
