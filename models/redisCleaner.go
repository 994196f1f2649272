package models

import (
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
)

type RedisCleaner interface {
	RemoveInstanceRedis() error // remove one
	RemoveAllRedis() error      // remove list & map if exists
}

// remove both item & list + map
func RemoveRedisBoth[T RedisCleaner](obj T) error {
	if err := obj.RemoveInstanceRedis(); err != nil {
		return err
	}
	if err := obj.RemoveAllRedis(); err != nil {
		return err
	}
	return nil
}

func (obj Warehouse) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[Warehouse](obj.ID)
}

func (obj Warehouse) RemoveAllRedis() error {
	return utils.RemoveRedisList[Warehouse](obj.BusinessId)
}

func (obj StockItem) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[StockItem](obj.ID)
}

func (obj StockItem) RemoveAllRedis() error {
	return utils.RemoveRedisList[StockItem](obj.BusinessId)
}

func (obj Ticket) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[Ticket](obj.ID)
}

func (obj Ticket) RemoveAllRedis() error {
	return utils.RemoveRedisList[Ticket](obj.BusinessId)
}
