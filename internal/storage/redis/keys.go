package redis

import (
	"fmt"

	"github.com/mcoot/omokgame/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "omok"

// gameKey returns the Redis key for a game record hash
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// movesKey returns the Redis key for a game's move log list
func movesKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s:moves", keyPrefix, id)
}

// openGamesKey returns the Redis key for the SET of joinable games
func openGamesKey() string {
	return fmt.Sprintf("%s:openGames", keyPrefix)
}

// bindingKey returns the Redis key for a connection binding hash
func bindingKey(conn model.ConnectionID) string {
	return fmt.Sprintf("%s:conn:%s", keyPrefix, conn)
}

// lobbyTopic returns the pub/sub channel for lobby change notifications
func lobbyTopic() string {
	return fmt.Sprintf("%s:gameListChange", keyPrefix)
}

// profileKey returns the Redis key for a Profile
func profileKey(uid string) string {
	return fmt.Sprintf("%s:profile:%s", keyPrefix, uid)
}

// credentialsKey returns the Redis key for a profile's Credentials
func credentialsKey(uid string) string {
	return fmt.Sprintf("%s:credentials:%s", keyPrefix, uid)
}

// usernameIndexKey returns the Redis key for the username -> uid index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// lockKey returns the Redis key for a lease held by Locker
func lockKey(key string) string {
	return fmt.Sprintf("%s:lock:%s", keyPrefix, key)
}
