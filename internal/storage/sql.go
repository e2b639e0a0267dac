package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time, 
                      name, 
                      config) 
VALUES (?, ?, ?)`

	selectSessionSQL = `
SELECT 
    id, 
    start_time, 
    name, 
    config 
FROM sessions 
WHERE 
    id = ?`

	selectSessionsSQL = `
SELECT 
    id, 
    start_time, 
    name, 
    config 
FROM sessions
ORDER BY start_time, id`

	insertObservationSQL = `
INSERT INTO observations (session_id,
                          observation_id,
                          target_id,
                          latitude,
                          longitude,
                          altitude,
                          bearing,
                          elevation,
                          confidence,
                          captured_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectObservationsSQL = `
SELECT 
    observation_id,
    target_id,
    latitude,
    longitude,
    altitude,
    bearing,
    elevation,
    confidence,
    captured_at
FROM observations
WHERE 
    session_id = ?
ORDER BY id`

	insertEstimateSQL = `
INSERT INTO estimates (session_id,
                       target_id,
                       latitude,
                       longitude,
                       precision_meters,
                       confidence_percent,
                       max_deviation_meters,
                       observation_count,
                       computed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectEstimatesSQL = `
SELECT 
    target_id,
    latitude,
    longitude,
    precision_meters,
    confidence_percent,
    max_deviation_meters,
    observation_count,
    computed_at
FROM estimates
WHERE 
    session_id = ?
ORDER BY id`
)
