package utils

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/mizanpos/pos_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// store instance, obj should be a pointer
func StoreRedis[T any](obj any, id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.SetRedisObject(key, &obj, GetCacheLifespan())
}

// retrieve cached instance into dest; reports whether it was found
func RetrieveRedis[T any](id int, dest *T) (bool, error) {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.GetRedisObject(key, dest)
}

// store the full list for a model type
func StoreRedisList[T any](list []*T) error {
	key := GetTypeName[T]() + "List"
	return config.SetRedisObject(key, &list, GetCacheLifespan())
}

// retrieve the full cached list for a model type; nil when absent
func RetrieveRedisList[T any]() ([]*T, error) {
	key := GetTypeName[T]() + "List"
	var list []*T
	exists, err := config.GetRedisObject(key, &list)
	if err != nil || !exists {
		return nil, err
	}
	return list, nil
}

// drop both instance and list caches for a model type
func InvalidateRedis[T any](id int) error {
	typeName := GetTypeName[T]()
	return config.RemoveRedisKey(typeName+":"+fmt.Sprint(id), typeName+"List")
}
