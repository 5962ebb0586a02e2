package store

const insertUserSQL = `
INSERT INTO users (email, password_hash, name, is_admin)
VALUES (?, ?, ?, ?)`

const insertAdminSQL = `
INSERT OR IGNORE INTO users (email, password_hash, name, is_admin)
VALUES (?, ?, ?, 1)`

const selectUserByEmailSQL = `
SELECT id, email, name, is_admin, created_at, password_hash
FROM users WHERE email = ?`

const selectUserByIDSQL = `
SELECT id, email, name, is_admin, created_at
FROM users WHERE id = ?`

const selectUsersSQL = `
SELECT id, email, name, is_admin, created_at
FROM users ORDER BY created_at DESC, id DESC`

const deleteUserSQL = `DELETE FROM users WHERE id = ?`

const insertSampleSQL = `
INSERT INTO emg_data (
    user_id, session_id,
    accelerometer_x, accelerometer_y, accelerometer_z,
    gyroscope_x, gyroscope_y, gyroscope_z,
    emg_envelope, emg_signal_max
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectSessionsSQL = `
SELECT session_id, MIN(timestamp) AS started_at, COUNT(*) AS data_points
FROM emg_data WHERE user_id = ?
GROUP BY session_id ORDER BY started_at DESC`

const selectEMGRecordsSQL = `
SELECT e.id, e.user_id, e.session_id,
    e.accelerometer_x, e.accelerometer_y, e.accelerometer_z,
    e.gyroscope_x, e.gyroscope_y, e.gyroscope_z,
    e.emg_envelope, e.emg_signal_max, e.timestamp,
    u.email, u.name
FROM emg_data e
JOIN users u ON e.user_id = u.id
ORDER BY e.timestamp DESC, e.id DESC LIMIT ?`

const selectStatsSQL = `
SELECT
    (SELECT COUNT(*) FROM users),
    (SELECT COUNT(*) FROM emg_data),
    (SELECT COUNT(DISTINCT session_id) FROM emg_data)`

const insertRevokedTokenSQL = `
INSERT OR REPLACE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`

const deleteExpiredRevokedTokensSQL = `DELETE FROM revoked_tokens WHERE expires_at <= ?`

const selectRevokedTokenSQL = `SELECT 1 FROM revoked_tokens WHERE jti = ?`
